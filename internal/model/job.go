package model

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job status values used by the tracker. The automation engine only ever writes JobStatusApplied.
const (
	JobStatusScraped         = "scraped"
	JobStatusScored          = "scored"
	JobStatusResumeGenerated = "resume_generated"
	JobStatusApplied         = "applied"
	JobStatusInterview       = "interview"
	JobStatusOffer           = "offer"
	JobStatusRejected        = "rejected"
)

// Job represents a job posting document
type Job struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title           string             `json:"title" bson:"title"`
	Company         string             `json:"company" bson:"company"`
	Location        string             `json:"location,omitempty" bson:"location,omitempty"`
	URL             string             `json:"url" bson:"url"`
	Source          string             `json:"source" bson:"source"` // linkedin, indeed, greenhouse, ...
	Description     string             `json:"description,omitempty" bson:"description,omitempty"`
	Status          string             `json:"status" bson:"status"`
	ResumePath      string             `json:"resume_path,omitempty" bson:"resume_path,omitempty"`
	CoverLetterPath string             `json:"cover_letter_path,omitempty" bson:"cover_letter_path,omitempty"`
	AppliedAt       time.Time          `json:"applied_at,omitempty" bson:"applied_at,omitempty"`
	Metadata        Metadata           `json:"metadata" bson:"metadata"`
}

// Validate validates the job document and fills defaults
func (j *Job) Validate() error {
	if j.URL == "" {
		return errors.New("job URL is required")
	}

	parsedURL, err := url.Parse(j.URL)
	if err != nil {
		return fmt.Errorf("invalid job URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("job URL must start with http:// or https://")
	}

	if len(j.Title) > 255 {
		return errors.New("job title must be 255 characters or less")
	}

	if j.Status == "" {
		j.Status = JobStatusScraped
	}
	if j.Source == "" {
		j.Source = "generic"
	}

	now := time.Now().UTC()
	if j.Metadata.CreatedAt.IsZero() {
		j.Metadata.CreatedAt = now
	}
	j.Metadata.UpdatedAt = now

	return nil
}

// JobListItem represents a summary of a job for list responses
type JobListItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Company   string `json:"company"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	HasResume bool   `json:"has_resume"`
	AppliedAt string `json:"applied_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ToListItem converts Job to JobListItem
func (j *Job) ToListItem() JobListItem {
	var appliedAt, createdAt string
	if !j.AppliedAt.IsZero() {
		appliedAt = j.AppliedAt.Format(time.RFC3339)
	}
	if !j.Metadata.CreatedAt.IsZero() {
		createdAt = j.Metadata.CreatedAt.Format(time.RFC3339)
	}

	return JobListItem{
		ID:        j.ID.Hex(),
		Title:     j.Title,
		Company:   j.Company,
		Source:    j.Source,
		Status:    j.Status,
		URL:       j.URL,
		HasResume: j.ResumePath != "",
		AppliedAt: appliedAt,
		CreatedAt: createdAt,
	}
}
