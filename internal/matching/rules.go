package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/smartmatch/internal/profile"
)

// Bucket tells which reason list an outcome belongs to.
type Bucket int

const (
	BucketGap Bucket = iota
	BucketStrength
)

// Outcome is the contribution of a single rule.
type Outcome struct {
	Penalty float64
	Note    string
	Bucket  Bucket
}

// Rule is one step of the scoring pass. Evaluate returns false when the rule
// has nothing to compare, e.g. one of the fields is absent.
type Rule struct {
	Name       string
	MaxPenalty float64
	Evaluate   func(c *profile.Candidate, j *profile.Job) (Outcome, bool)
}

const (
	cityPenalty           = 15.0
	experienceBasePenalty = 10.0
	experiencePerYear     = 5.0
	experienceMaxPenalty  = 25.0
	titlePenalty          = 8.0
	educationPenalty      = 4.0
	languagesPenalty      = 10.0
	salaryPenalty         = 10.0
	employmentPenalty     = 8.0
)

// rules is evaluated in this exact order; reasons keep the same order.
var rules = []Rule{
	{Name: "location", MaxPenalty: cityPenalty, Evaluate: locationRule},
	{Name: "experience", MaxPenalty: experienceMaxPenalty, Evaluate: experienceRule},
	{Name: "title", MaxPenalty: titlePenalty, Evaluate: titleRule},
	{Name: "education", MaxPenalty: educationPenalty, Evaluate: educationRule},
	{Name: "languages", MaxPenalty: languagesPenalty, Evaluate: languagesRule},
	{Name: "salary", MaxPenalty: salaryPenalty, Evaluate: salaryRule},
	{Name: "employment_type", MaxPenalty: employmentPenalty, Evaluate: employmentTypeRule},
}

// RuleInfo describes a rule for reporting.
type RuleInfo struct {
	Name       string  `json:"name"`
	MaxPenalty float64 `json:"max_penalty"`
}

// Describe returns the rules in evaluation order with their maximum penalties.
func Describe() []RuleInfo {
	infos := make([]RuleInfo, 0, len(rules))
	for _, rule := range rules {
		infos = append(infos, RuleInfo{Name: rule.Name, MaxPenalty: rule.MaxPenalty})
	}
	return infos
}

func gap(penalty float64, note string) (Outcome, bool) {
	return Outcome{Penalty: penalty, Note: note, Bucket: BucketGap}, true
}

func strength(note string) (Outcome, bool) {
	return Outcome{Note: note, Bucket: BucketStrength}, true
}

func locationRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	if j.City == "" || c.City == "" {
		return Outcome{}, false
	}
	if strings.ToLower(j.City) != strings.ToLower(c.City) {
		return gap(cityPenalty, fmt.Sprintf("City mismatch: job=%s, candidate=%s", j.City, c.City))
	}
	return strength("Same city")
}

func experienceRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	if c.YearsExperience < j.MinExperience {
		delta := j.MinExperience - c.YearsExperience
		penalty := math.Min(experienceMaxPenalty, experienceBasePenalty+delta*experiencePerYear)
		return gap(penalty, fmt.Sprintf("Experience short by %.1f years", delta))
	}
	return strength("Meets experience")
}

func titleRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	if j.Title == "" || c.Title == "" {
		return Outcome{}, false
	}
	if containsFold(c.Title, j.Title) {
		return strength("Title match")
	}
	return gap(titlePenalty, "Title mismatch")
}

func educationRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	if j.Education == "" || c.Education == "" {
		return Outcome{}, false
	}
	if containsFold(c.Education, j.Education) {
		return strength("Education match")
	}
	return gap(educationPenalty, "Education mismatch")
}

func languagesRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	required := TokenSet(j.Languages)
	if required.Len() == 0 {
		return Outcome{}, false
	}

	common := required.Intersect(TokenSet(c.Languages))
	if common.Len() == 0 {
		return gap(languagesPenalty, "No required languages: need "+strings.Join(required.Sorted(), ", "))
	}
	return strength("Languages match: " + strings.Join(common.Sorted(), ", "))
}

func salaryRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	if c.SalaryExpectation == nil || j.SalaryMax == nil {
		return Outcome{}, false
	}
	if *c.SalaryExpectation > *j.SalaryMax {
		return gap(salaryPenalty, fmt.Sprintf("Salary expectation %d > max %d", *c.SalaryExpectation, *j.SalaryMax))
	}
	return strength("Salary within range")
}

func employmentTypeRule(c *profile.Candidate, j *profile.Job) (Outcome, bool) {
	if j.EmploymentType == "" || c.EmploymentType == "" {
		return Outcome{}, false
	}
	if strings.ToLower(j.EmploymentType) != strings.ToLower(c.EmploymentType) {
		return gap(employmentPenalty, fmt.Sprintf("Employment type mismatch: job=%s, candidate=%s", j.EmploymentType, c.EmploymentType))
	}
	return strength("Employment type match")
}

// containsFold reports whether substr is within s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
