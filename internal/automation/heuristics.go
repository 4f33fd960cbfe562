package automation

import (
	"strings"

	"github.com/PratikLad0/job-search-automation/internal/model"
)

// Profile field keys used by FieldRule
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldFullName  = "full_name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldLocation  = "location"
	FieldLinkedIn  = "linkedin"
	FieldGitHub    = "github"
	FieldPortfolio = "portfolio"
)

// FieldRule maps a profile field to the inputs that may hold it, in priority order
type FieldRule struct {
	Field    string
	Locators []Locator
}

// Heuristics are the ordered lookup tables the state machine walks
type Heuristics struct {
	// LoginWallMarkers are lowercase phrases that mean the page wants a sign-in
	LoginWallMarkers []string
	// LoginWallLocators are elements that mean the same
	LoginWallLocators []Locator
	// StepWallMarkers are extra phrases checked inside form steps
	StepWallMarkers []string
	// LoginURLFragments mark a redirect to a sign-in page
	LoginURLFragments []string

	ApplyLocators   []Locator
	ResumeInputs    []Locator
	Fields          []FieldRule
	AdvanceLocators []Locator
	SuccessMarkers  []string
}

// DefaultHeuristics returns the generic tables used for unknown job boards
func DefaultHeuristics() Heuristics {
	return Heuristics{
		LoginWallMarkers: []string{
			"sign in to apply",
			"join to apply",
			"log in to apply",
		},
		LoginWallLocators: []Locator{
			{CSS: ".modal__login-header"},
			{CSS: "form#join-form"},
		},
		StepWallMarkers: []string{
			"welcome back",
			"sign in to continue",
		},
		LoginURLFragments: []string{"login", "signin", "sign-in", "authwall"},

		// Most specific first; the bare button is the last resort.
		ApplyLocators: []Locator{
			{CSS: ".jobs-apply-button"},
			{CSS: "#indeedApplyButton"},
			{CSS: ".apply-button"},
			{CSS: "[data-testid*='apply' i]"},
			{Text: "quick apply"},
			{Text: "easy apply"},
			{Text: "apply now"},
			{Text: "apply on company"}, // "site" and "website" variants, usually a new tab
			{Text: "apply to this job"},
			{Text: "apply for this job"},
			{Text: "i'm interested"},
			{CSS: "a[href*='apply' i]", Text: "apply"},
			{CSS: "button", Text: "apply"},
		},

		// Only inputs that look like they want a resume.
		ResumeInputs: []Locator{
			{CSS: "input[type='file'][name*='resume' i]"},
			{CSS: "input[type='file'][id*='resume' i]"},
			{CSS: "input[type='file'][name*='cv' i]"},
			{CSS: "input[type='file'][accept*='pdf' i]"},
		},

		Fields: []FieldRule{
			{Field: FieldFirstName, Locators: []Locator{
				{CSS: "input[name*='first' i]"},
				{CSS: "input[id*='first' i]"},
				{CSS: "input[placeholder*='first name' i]"},
			}},
			{Field: FieldLastName, Locators: []Locator{
				{CSS: "input[name*='last' i]"},
				{CSS: "input[id*='last' i]"},
				{CSS: "input[placeholder*='last name' i]"},
			}},
			{Field: FieldFullName, Locators: []Locator{
				{CSS: "input[name='name' i]"},
				{CSS: "input[name*='full' i][name*='name' i]"},
				{CSS: "input[placeholder*='full name' i]"},
			}},
			{Field: FieldEmail, Locators: []Locator{
				{CSS: "input[type='email']"},
				{CSS: "input[name*='email' i]"},
				{CSS: "input[id*='email' i]"},
			}},
			{Field: FieldPhone, Locators: []Locator{
				{CSS: "input[type='tel']"},
				{CSS: "input[name*='phone' i]"},
				{CSS: "input[id*='phone' i]"},
			}},
			{Field: FieldLocation, Locators: []Locator{
				{CSS: "input[name*='location' i]"},
				{CSS: "input[name*='city' i]"},
				{CSS: "input[placeholder*='location' i]"},
			}},
			{Field: FieldLinkedIn, Locators: []Locator{
				{CSS: "input[name*='linkedin' i]"},
				{CSS: "input[id*='linkedin' i]"},
				{CSS: "input[placeholder*='linkedin' i]"},
			}},
			{Field: FieldGitHub, Locators: []Locator{
				{CSS: "input[name*='github' i]"},
				{CSS: "input[placeholder*='github' i]"},
			}},
			{Field: FieldPortfolio, Locators: []Locator{
				{CSS: "input[name*='portfolio' i]"},
				{CSS: "input[name*='website' i]"},
				{CSS: "input[placeholder*='website' i]"},
			}},
		},

		AdvanceLocators: []Locator{
			{Text: "continue"},
			{CSS: ".ia-continue-button"},
			{Text: "next"},
			{Text: "save and continue"},
			{Text: "review"},
			{Text: "submit"},
			{CSS: "button", Text: "apply"},
			{CSS: "button[type='submit']"},
			{CSS: "input[type='submit']"},
		},

		SuccessMarkers: []string{
			"application submitted",
			"thank you",
			"thanks for applying",
			"received",
			"success",
		},
	}
}

// ProfileValue returns the value a field rule fills from the profile
func ProfileValue(p *model.CandidateProfile, field string) string {
	if p == nil {
		return ""
	}
	switch field {
	case FieldFirstName:
		return p.FirstName()
	case FieldLastName:
		return p.LastName()
	case FieldFullName:
		return strings.TrimSpace(p.FullName)
	case FieldEmail:
		return p.Email
	case FieldPhone:
		return p.Phone
	case FieldLocation:
		return p.Location
	case FieldLinkedIn:
		return p.LinkedInURL
	case FieldGitHub:
		return p.GitHubURL
	case FieldPortfolio:
		return p.PortfolioURL
	default:
		return ""
	}
}

func containsAny(haystack string, needles []string) (string, bool) {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return n, true
		}
	}
	return "", false
}
