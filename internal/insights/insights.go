// Package insights derives advisory text from scoring gaps and free-text fields.
package insights

import "strings"

const (
	minResumeWords = 120

	SuggestExpandBullets  = "Expand with 3–5 bullet points per job including metrics (%, $, time)."
	SuggestActionVerbs    = "Replace 'responsible for' with strong action verbs and outcomes."
	SuggestSkillsSection  = "Add a 'Skills' section with tools and languages mentioned in the job description."
	FallbackRejectionText = "A stronger profile was selected"
)

// Bundle groups the three advisory lists produced for a match.
type Bundle struct {
	ResumeSuggestions      []string `json:"resume_suggestions"`
	OfferSuggestions       []string `json:"offer_suggestions"`
	LikelyRejectionReasons []string `json:"likely_rejection_reasons"`
}

var offerSuggestions = []string{
	"Publish salary range and bonus/ESOP policy.",
	"Describe growth path, mentorship, and learning budget.",
	"Mention work mode (remote/hybrid) and flexible hours if possible.",
	"State tech stack and interview process clearly.",
}

type rejectionRule struct {
	match  func(gap string) bool
	reason string
}

// Every rule is checked against every gap; a gap may yield several reasons.
var rejectionRules = []rejectionRule{
	{
		match:  func(g string) bool { return strings.Contains(g, "experience") && strings.Contains(g, "short") },
		reason: "Insufficient relevant experience",
	},
	{
		match:  func(g string) bool { return strings.Contains(g, "language") && strings.Contains(g, "required") },
		reason: "Missing required language/skill",
	},
	{
		match:  func(g string) bool { return strings.Contains(g, "salary") && strings.Contains(g, ">") },
		reason: "Salary expectations above budget",
	},
	{
		match:  func(g string) bool { return strings.Contains(g, "location") || strings.Contains(g, "city mismatch") },
		reason: "Location/relocation constraints",
	},
}

// Generate builds all three advisory lists.
func Generate(gaps []string, resumeText, jobDescription string) Bundle {
	return Bundle{
		ResumeSuggestions:      ResumeSuggestions(resumeText),
		OfferSuggestions:       OfferSuggestions(jobDescription),
		LikelyRejectionReasons: LikelyRejectionReasons(gaps),
	}
}

// ResumeSuggestions returns two or three tips, the Skills section tip always last.
func ResumeSuggestions(resumeText string) []string {
	suggestions := make([]string, 0, 3)
	if resumeText == "" || len(strings.Fields(resumeText)) < minResumeWords {
		suggestions = append(suggestions, SuggestExpandBullets)
	}
	if resumeText != "" && strings.Contains(strings.ToLower(resumeText), "responsible for") {
		suggestions = append(suggestions, SuggestActionVerbs)
	}
	return append(suggestions, SuggestSkillsSection)
}

// OfferSuggestions returns the same employer tips for every posting.
// The description is not inspected yet.
func OfferSuggestions(_ string) []string {
	out := make([]string, len(offerSuggestions))
	copy(out, offerSuggestions)
	return out
}

// LikelyRejectionReasons infers rejection reasons from gap texts.
// Repeated matches are kept; with no match the fallback reason is returned.
func LikelyRejectionReasons(gaps []string) []string {
	reasons := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		lower := strings.ToLower(gap)
		for _, rule := range rejectionRules {
			if rule.match(lower) {
				reasons = append(reasons, rule.reason)
			}
		}
	}

	if len(reasons) == 0 {
		return []string{FallbackRejectionText}
	}
	return reasons
}
