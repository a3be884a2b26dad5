package headhunter

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/spigell/smartmatch/internal/profile"
)

type named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Vacancy holds the fields of an hh.ru vacancy that map onto a job.
type Vacancy struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Area   named  `json:"area,omitempty"`
	Salary struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
	} `json:"salary,omitempty"`
	Experience named `json:"experience,omitempty"`
	Schedule   named `json:"schedule,omitempty"`
	Employment named `json:"employment,omitempty"`
	Employer   struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string  `json:"alternate_url,omitempty"`
	Description  string  `json:"description,omitempty"`
	KeySkills    []named `json:"key_skills,omitempty"`
	Languages    []named `json:"languages,omitempty"`
	Snippet      struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Minimum years for hh.ru experience ids.
var experienceYears = map[string]float64{
	"noExperience": 0,
	"between1And3": 1,
	"between3And6": 3,
	"moreThan6":    6,
}

var employmentTypes = map[string]string{
	"full":      "full-time",
	"part":      "part-time",
	"project":   "contract",
	"probation": "internship",
	"volunteer": "volunteer",
}

const unknownCompany = "Unknown"

// ToJob converts the vacancy into a job record. Unknown values stay empty.
func (v *Vacancy) ToJob() *profile.Job {
	job := &profile.Job{
		Company:        strings.TrimSpace(v.Employer.Name),
		City:           strings.TrimSpace(v.Area.Name),
		MinExperience:  experienceYears[v.Experience.ID],
		Title:          strings.TrimSpace(v.Name),
		EmploymentType: employmentTypes[v.Employment.ID],
		Description:    v.description(),
		Criteria: map[string]any{
			"source": "hh",
			"hh_id":  v.ID,
		},
	}

	if v.Salary.From > 0 {
		job.SalaryMin = profile.Int64(int64(v.Salary.From))
	}
	if v.Salary.To > 0 {
		job.SalaryMax = profile.Int64(int64(v.Salary.To))
	}

	langs := make([]string, 0, len(v.Languages))
	for _, l := range v.Languages {
		if name := strings.TrimSpace(l.Name); name != "" {
			langs = append(langs, name)
		}
	}
	job.Languages = strings.Join(langs, ",")

	if v.AlternateURL != "" {
		job.Criteria["url"] = v.AlternateURL
	}
	if v.Salary.Currency != "" {
		job.Criteria["salary_currency"] = v.Salary.Currency
	}
	if len(v.KeySkills) > 0 {
		skills := make([]string, 0, len(v.KeySkills))
		for _, s := range v.KeySkills {
			skills = append(skills, s.Name)
		}
		job.Criteria["key_skills"] = skills
	}

	if job.Company == "" {
		job.Company = unknownCompany
	}

	return job
}

// description prefers the full text and falls back to the search snippet.
// HTML is converted to markdown; on failure the raw text is kept.
func (v *Vacancy) description() string {
	text := v.Description
	if text == "" {
		text = strings.TrimSpace(v.Snippet.Requirement + " " + v.Snippet.Responsibility)
	}
	if text == "" {
		return ""
	}

	md, err := htmltomarkdown.ConvertString(text)
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(md)
}
