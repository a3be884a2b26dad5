package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/profile"
)

const (
	SearchPath = "/vacancies"
)

// SearchParams are the vacancy search query parameters.
type SearchParams struct {
	Text string `mapstructure:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Areas       []int    `hhparam:"area" mapstructure:"areas"`
	OrderBy     string   `hhparam:"order_by" mapstructure:"order_by"`
	Employer    uint     `hhparam:"employer_id" mapstructure:"employer_id"`
	SearchField string   `hhparam:"search_field" mapstructure:"search_field"`
	Schedules   []string `hhparam:"schedule" mapstructure:"schedules"`
	PerPage     string   `hhparam:"per_page" mapstructure:"per_page"`
	Experience  string   `mapstructure:"experience"`
	Period      uint     `mapstructure:"period"`
}

// Search returns vacancies matching params. maxPages <= 0 fetches every page.
func (c *Client) Search(ctx context.Context, params SearchParams, maxPages int) ([]*Vacancy, error) {
	// Set per_page max as possible. It should be faster.
	if params.PerPage == "" {
		params.PerPage = perPage
	}

	items, err := c.GetItems(ctx, c.APIURL+SearchPath, buildParams(&params), maxPages)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var vacancies []*Vacancy
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &vacancies,
		TagName: "json",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding vacancies: %w", err)
	}

	c.logger.Info("vacancies found", zap.Int("count", len(vacancies)), zap.String("text", params.Text))
	return vacancies, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("hhparam")
		if key == "" {
			// Failover to the config tag if our tag does not exist.
			key = field.Tag.Get("mapstructure")
		}

		value := reflect.ValueOf(params).Elem().Field(field.Index[0])
		switch v := value.Interface().(type) {
		case []int:
			for _, item := range v {
				q.Add(key, strconv.Itoa(item))
			}
		case []string:
			for _, item := range v {
				q.Add(key, item)
			}
		default:
			s := fmt.Sprintf("%v", v)
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}

// SearchJobs runs Search and converts every vacancy into a job.
func (c *Client) SearchJobs(ctx context.Context, params SearchParams, maxPages int) ([]*profile.Job, error) {
	vacancies, err := c.Search(ctx, params, maxPages)
	if err != nil {
		return nil, err
	}

	jobs := make([]*profile.Job, 0, len(vacancies))
	for _, v := range vacancies {
		jobs = append(jobs, v.ToJob())
	}
	return jobs, nil
}
