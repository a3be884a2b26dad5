package matching

import (
	"math"
	"reflect"
	"testing"

	"github.com/spigell/smartmatch/internal/insights"
	"github.com/spigell/smartmatch/internal/profile"
)

func almatyFrontendPair() (*profile.Candidate, *profile.Job) {
	c := &profile.Candidate{
		Name:              "Dana",
		City:              "Almaty",
		YearsExperience:   3,
		Title:             "Frontend Developer",
		Education:         "Bachelor",
		Languages:         "ru,en",
		SalaryExpectation: profile.Int64(600000),
		EmploymentType:    "full-time",
	}
	j := &profile.Job{
		Company:        "Kaspi",
		City:           "Almaty",
		MinExperience:  2,
		Title:          "Frontend Developer",
		Education:      "Bachelor",
		Languages:      "ru,en",
		SalaryMin:      profile.Int64(400000),
		SalaryMax:      profile.Int64(700000),
		EmploymentType: "full-time",
	}
	return c, j
}

func TestScorePerfectMatch(t *testing.T) {
	c, j := almatyFrontendPair()

	score, reasons := Score(c, j)
	if score != 100.0 {
		t.Fatalf("expected score 100, got %v", score)
	}

	if len(reasons.Gaps) != 0 {
		t.Fatalf("expected no gaps, got %v", reasons.Gaps)
	}

	expected := []string{
		"Same city",
		"Meets experience",
		"Title match",
		"Education match",
		"Languages match: en, ru",
		"Salary within range",
		"Employment type match",
	}
	if !reflect.DeepEqual(reasons.Strengths, expected) {
		t.Fatalf("unexpected strengths:\n got %q\nwant %q", reasons.Strengths, expected)
	}
}

func TestScoreExperienceOnly(t *testing.T) {
	score, reasons := Score(
		&profile.Candidate{Name: "Arman", YearsExperience: 1},
		&profile.Job{Company: "Halyk", MinExperience: 3},
	)

	if score != 80.0 {
		t.Fatalf("expected score 80, got %v", score)
	}
	if !reflect.DeepEqual(reasons.Gaps, []string{"Experience short by 2.0 years"}) {
		t.Fatalf("unexpected gaps: %q", reasons.Gaps)
	}
	if len(reasons.Strengths) != 0 {
		t.Fatalf("expected no strengths, got %q", reasons.Strengths)
	}
}

func TestScoreEveryRuleFails(t *testing.T) {
	c := &profile.Candidate{
		Name:              "Timur",
		City:              "Astana",
		YearsExperience:   0,
		Title:             "Designer",
		Education:         "College",
		Languages:         "de",
		SalaryExpectation: profile.Int64(900),
		EmploymentType:    "contract",
	}
	j := &profile.Job{
		Company:        "Kolesa",
		City:           "Almaty",
		MinExperience:  100,
		Title:          "Backend Engineer",
		Education:      "Master",
		Languages:      "kk, RU",
		SalaryMax:      profile.Int64(500),
		EmploymentType: "full-time",
	}

	score, reasons := Score(c, j)
	if score != 20.0 {
		t.Fatalf("expected score 20, got %v", score)
	}

	expected := []string{
		"City mismatch: job=Almaty, candidate=Astana",
		"Experience short by 100.0 years",
		"Title mismatch",
		"Education mismatch",
		"No required languages: need kk, ru",
		"Salary expectation 900 > max 500",
		"Employment type mismatch: job=full-time, candidate=contract",
	}
	if !reflect.DeepEqual(reasons.Gaps, expected) {
		t.Fatalf("unexpected gaps:\n got %q\nwant %q", reasons.Gaps, expected)
	}
	if len(reasons.Strengths) != 0 {
		t.Fatalf("expected no strengths, got %q", reasons.Strengths)
	}
}

func TestScoreRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate profile.Candidate
		job       profile.Job
		score     float64
		gaps      []string
		strengths []string
	}{
		{
			name:      "experience penalty is capped",
			candidate: profile.Candidate{YearsExperience: 0},
			job:       profile.Job{MinExperience: 100},
			score:     75,
			gaps:      []string{"Experience short by 100.0 years"},
			strengths: []string{},
		},
		{
			name:      "fractional experience delta",
			candidate: profile.Candidate{YearsExperience: 0.5},
			job:       profile.Job{MinExperience: 1},
			score:     87.5,
			gaps:      []string{"Experience short by 0.5 years"},
			strengths: []string{},
		},
		{
			name:      "absent job city skips location",
			candidate: profile.Candidate{City: "Almaty"},
			job:       profile.Job{},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience"},
		},
		{
			name:      "city compared case-insensitively",
			candidate: profile.Candidate{City: "ALMATY"},
			job:       profile.Job{City: "almaty"},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Same city", "Meets experience"},
		},
		{
			name:      "job title is a substring of candidate title",
			candidate: profile.Candidate{Title: "Senior Go Developer"},
			job:       profile.Job{Title: "go developer"},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience", "Title match"},
		},
		{
			name:      "candidate title shorter than job title",
			candidate: profile.Candidate{Title: "Developer"},
			job:       profile.Job{Title: "Senior Go Developer"},
			score:     92,
			gaps:      []string{"Title mismatch"},
			strengths: []string{"Meets experience"},
		},
		{
			name:      "education mismatch",
			candidate: profile.Candidate{Education: "Bachelor of Arts"},
			job:       profile.Job{Education: "Master"},
			score:     96,
			gaps:      []string{"Education mismatch"},
			strengths: []string{"Meets experience"},
		},
		{
			name:      "languages normalized on both sides",
			candidate: profile.Candidate{Languages: "ru,en "},
			job:       profile.Job{Languages: "RU, En"},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience", "Languages match: en, ru"},
		},
		{
			name:      "only overlapping languages are listed",
			candidate: profile.Candidate{Languages: "en, de"},
			job:       profile.Job{Languages: "kk,ru,en"},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience", "Languages match: en"},
		},
		{
			name:      "empty job languages ignore candidate languages",
			candidate: profile.Candidate{Languages: "en"},
			job:       profile.Job{Languages: " , "},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience"},
		},
		{
			name:      "missing candidate languages",
			candidate: profile.Candidate{},
			job:       profile.Job{Languages: "en,kk,en"},
			score:     90,
			gaps:      []string{"No required languages: need en, kk"},
			strengths: []string{"Meets experience"},
		},
		{
			name:      "salary equal to max is within range",
			candidate: profile.Candidate{SalaryExpectation: profile.Int64(700)},
			job:       profile.Job{SalaryMax: profile.Int64(700)},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience", "Salary within range"},
		},
		{
			name:      "zero salary is present",
			candidate: profile.Candidate{SalaryExpectation: profile.Int64(0)},
			job:       profile.Job{SalaryMax: profile.Int64(0)},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience", "Salary within range"},
		},
		{
			name:      "salary min alone is ignored",
			candidate: profile.Candidate{SalaryExpectation: profile.Int64(10)},
			job:       profile.Job{SalaryMin: profile.Int64(100)},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience"},
		},
		{
			name:      "employment type compared case-insensitively",
			candidate: profile.Candidate{EmploymentType: "Full-Time"},
			job:       profile.Job{EmploymentType: "full-time"},
			score:     100,
			gaps:      []string{},
			strengths: []string{"Meets experience", "Employment type match"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			score, reasons := Score(&tt.candidate, &tt.job)
			if math.Abs(score-tt.score) > 1e-9 {
				t.Fatalf("expected score %v, got %v", tt.score, score)
			}
			if !reflect.DeepEqual(reasons.Gaps, tt.gaps) {
				t.Fatalf("unexpected gaps:\n got %q\nwant %q", reasons.Gaps, tt.gaps)
			}
			if !reflect.DeepEqual(reasons.Strengths, tt.strengths) {
				t.Fatalf("unexpected strengths:\n got %q\nwant %q", reasons.Strengths, tt.strengths)
			}
		})
	}
}

func TestScoreNilInputs(t *testing.T) {
	score, reasons := Score(nil, nil)
	if score != 100 {
		t.Fatalf("expected score 100, got %v", score)
	}
	if !reflect.DeepEqual(reasons.Strengths, []string{"Meets experience"}) {
		t.Fatalf("unexpected strengths: %q", reasons.Strengths)
	}
}

func TestScoreDoesNotModifyInputs(t *testing.T) {
	c, j := almatyFrontendPair()
	c.City = "Astana"
	cBefore, jBefore := *c, *j

	Score(c, j)

	if !reflect.DeepEqual(*c, cBefore) || !reflect.DeepEqual(*j, jBefore) {
		t.Fatalf("inputs were modified")
	}
}

func TestMatchComposesInsights(t *testing.T) {
	c := &profile.Candidate{Name: "Arman", City: "Shymkent", YearsExperience: 1}
	j := &profile.Job{Company: "Halyk", City: "Almaty", MinExperience: 3}

	result := Match(c, j)

	if result.Score != 65 {
		t.Fatalf("expected score 65, got %v", result.Score)
	}

	expectedReasons := []string{"Location/relocation constraints", "Insufficient relevant experience"}
	if !reflect.DeepEqual(result.Insights.LikelyRejectionReasons, expectedReasons) {
		t.Fatalf("unexpected rejection reasons: %q", result.Insights.LikelyRejectionReasons)
	}

	if !reflect.DeepEqual(result.Insights.ResumeSuggestions, []string{insights.SuggestExpandBullets, insights.SuggestSkillsSection}) {
		t.Fatalf("unexpected resume suggestions: %q", result.Insights.ResumeSuggestions)
	}

	if len(result.Insights.OfferSuggestions) != 4 {
		t.Fatalf("expected 4 offer suggestions, got %d", len(result.Insights.OfferSuggestions))
	}
}

func TestDescribe(t *testing.T) {
	infos := Describe()

	names := make([]string, 0, len(infos))
	total := 0.0
	for _, info := range infos {
		names = append(names, info.Name)
		total += info.MaxPenalty
	}

	expected := []string{"location", "experience", "title", "education", "languages", "salary", "employment_type"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("unexpected rule order: %q", names)
	}

	if total != 80 {
		t.Fatalf("expected total max penalty 80, got %v", total)
	}

	if len(rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(rules))
	}
}

func TestTokenSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect []string
	}{
		{input: "", expect: []string{}},
		{input: " , ,", expect: []string{}},
		{input: "RU, En", expect: []string{"en", "ru"}},
		{input: "ru,en ", expect: []string{"en", "ru"}},
		{input: "kk,KK , kk", expect: []string{"kk"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := TokenSet(tt.input).Sorted(); !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestRank(t *testing.T) {
	job := &profile.Job{Company: "Kaspi", City: "Almaty", MinExperience: 2}
	candidates := []*profile.Candidate{
		{ID: 1, Name: "far", City: "Astana", YearsExperience: 5},
		{ID: 2, Name: "junior", City: "Almaty", YearsExperience: 0},
		{ID: 3, Name: "best", City: "Almaty", YearsExperience: 4},
		{ID: 4, Name: "also best", City: "almaty", YearsExperience: 2},
	}

	ranked := Rank(job, candidates, 81, 0)

	ids := make([]int64, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.Candidate.ID)
	}
	if !reflect.DeepEqual(ids, []int64{3, 4, 1}) {
		t.Fatalf("unexpected ranking: %v", ids)
	}

	limited := Rank(job, candidates, 0, 2)
	if len(limited) != 2 || limited[0].Candidate.ID != 3 {
		t.Fatalf("unexpected limited ranking: %+v", limited)
	}
}
