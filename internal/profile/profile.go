package profile

// Candidate is a job seeker profile as it is stored and scored.
// Empty strings mean the field is absent.
type Candidate struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name" validate:"required"`
	Email             string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone             string         `json:"phone,omitempty"`
	City              string         `json:"city,omitempty"`
	YearsExperience   float64        `json:"years_experience" validate:"gte=0"`
	Title             string         `json:"title,omitempty"`
	Education         string         `json:"education,omitempty"`
	Languages         string         `json:"languages,omitempty"`
	SalaryExpectation *int64         `json:"salary_expectation,omitempty" validate:"omitempty,gte=0"`
	EmploymentType    string         `json:"employment_type,omitempty"`
	ResumeText        string         `json:"resume_text,omitempty"`
	Source            string         `json:"source,omitempty"`
	Metadata          map[string]any `json:"metadata_json,omitempty"`
}

// Job is a job posting as it is stored and scored.
type Job struct {
	ID             int64          `json:"id"`
	Company        string         `json:"company" validate:"required"`
	City           string         `json:"city,omitempty"`
	MinExperience  float64        `json:"min_experience" validate:"gte=0"`
	Title          string         `json:"title,omitempty"`
	Education      string         `json:"education,omitempty"`
	Languages      string         `json:"languages,omitempty"`
	SalaryMin      *int64         `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax      *int64         `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	EmploymentType string         `json:"employment_type,omitempty"`
	Description    string         `json:"description,omitempty"`
	Criteria       map[string]any `json:"criteria_json,omitempty"`
}

// Int64 returns a pointer to v. Handy for optional salary fields.
func Int64(v int64) *int64 {
	return &v
}
