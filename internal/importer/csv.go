package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spigell/smartmatch/internal/profile"
)

const unknownName = "Unknown"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads candidates from a CSV file with a header row. Unknown
// columns are ignored and invalid UTF-8 bytes are dropped.
func ParseCSV(r io.Reader) ([]*profile.Candidate, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	raw = bytes.TrimPrefix(raw, utf8BOM)
	text := strings.ToValidUTF8(string(raw), "")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []*profile.Candidate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	candidates := make([]*profile.Candidate, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		get := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		c, err := candidateFromRow(get)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

func candidateFromRow(get func(column string) string) (*profile.Candidate, error) {
	c := &profile.Candidate{
		Name:           get("name"),
		Email:          get("email"),
		Phone:          get("phone"),
		City:           get("city"),
		Title:          get("title"),
		Education:      get("education"),
		Languages:      get("languages"),
		EmploymentType: get("employment_type"),
		ResumeText:     get("resume_text"),
		Source:         get("source"),
	}

	if c.Name == "" {
		c.Name = unknownName
	}
	if c.Source == "" {
		c.Source = string(SourceCSV)
	}

	if v := get("years_experience"); v != "" {
		years, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("years_experience %q is not a number", v)
		}
		c.YearsExperience = years
	}

	if v := get("salary_expectation"); v != "" {
		salary, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("salary_expectation %q is not an integer", v)
		}
		if salary != 0 {
			c.SalaryExpectation = profile.Int64(salary)
		}
	}

	return c, nil
}
