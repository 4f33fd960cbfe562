package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// DefaultProfileID is the identifier of the single candidate profile used by default
const DefaultProfileID = "default"

// CandidateProfile holds the personal data used to fill application forms.
// The automation engine reads it and never mutates it.
type CandidateProfile struct {
	ID           string    `json:"id" bson:"_id"`
	FullName     string    `json:"full_name" bson:"full_name"`
	Email        string    `json:"email" bson:"email"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Location     string    `json:"location,omitempty" bson:"location,omitempty"`
	LinkedInURL  string    `json:"linkedin_url,omitempty" bson:"linkedin_url,omitempty"`
	GitHubURL    string    `json:"github_url,omitempty" bson:"github_url,omitempty"`
	PortfolioURL string    `json:"portfolio_url,omitempty" bson:"portfolio_url,omitempty"`
	ResumePath   string    `json:"resume_path,omitempty" bson:"resume_path,omitempty"`
	Summary      string    `json:"summary,omitempty" bson:"summary,omitempty"`
	Skills       []string  `json:"skills,omitempty" bson:"skills,omitempty"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate validates the profile
func (p *CandidateProfile) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return errors.New("full_name is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return errors.New("email is not a valid address")
		}
	}
	if p.ID == "" {
		p.ID = DefaultProfileID
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// FirstName returns the first token of the full name, or the full name when it is a single word
func (p *CandidateProfile) FirstName() string {
	parts := strings.Fields(p.FullName)
	if len(parts) < 2 {
		return strings.TrimSpace(p.FullName)
	}
	return parts[0]
}

// LastName returns the last token of the full name, or "" when it is a single word
func (p *CandidateProfile) LastName() string {
	parts := strings.Fields(p.FullName)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}
