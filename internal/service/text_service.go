package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/worker"
)

const chatSystemPrompt = "You are a helpful career assistant. You help the user with their job search, " +
	"analyzing job descriptions, and providing advice on applications."

// ChatRequest is a chat message, optionally tied to a job
type ChatRequest struct {
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	Context string `json:"context,omitempty"`
}

// ChatResult is the result of a chat task
type ChatResult struct {
	Response        string `json:"response"`
	OriginalMessage string `json:"original_message"`
}

// CoverLetterResult is the result of a cover letter task
type CoverLetterResult struct {
	JobID           string `json:"job_id"`
	CoverLetterPath string `json:"cover_letter_path"`
	Generated       bool   `json:"generated"` // false when the fallback template was used
}

// TextService runs text generation work as coordinator tasks
type TextService struct {
	generator TextGenerator
	jobs      JobStore
	profiles  ProfileStore
	profileID string
	outputDir string
}

// NewTextService creates a text service writing files under outputDir
func NewTextService(generator TextGenerator, jobs JobStore, profiles ProfileStore, profileID, outputDir string) *TextService {
	if profileID == "" {
		profileID = model.DefaultProfileID
	}
	return &TextService{
		generator: generator,
		jobs:      jobs,
		profiles:  profiles,
		profileID: profileID,
		outputDir: outputDir,
	}
}

// ChatTask returns a task answering req
func (s *TextService) ChatTask(req ChatRequest) worker.TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		return s.Chat(ctx, req)
	}
}

// Chat answers a career question, adding the job as context when given
func (s *TextService) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return ChatResult{}, fmt.Errorf("chat message is empty")
	}

	system := chatSystemPrompt
	if req.JobID != "" {
		job, err := s.jobs.GetByID(ctx, req.JobID)
		if err != nil {
			slog.Warn("Chat job context unavailable", "job_id", req.JobID, "error", err)
		} else {
			system += fmt.Sprintf("\n\nActive Job Context:\nTitle: %s\nCompany: %s\nDescription: %s\n",
				job.Title, job.Company, job.Description)
		}
	}
	if req.Context != "" {
		system += "\n\nAdditional Context: " + req.Context
	}

	response, err := s.generator.Generate(ctx, req.Message, system)
	if err != nil {
		return ChatResult{}, fmt.Errorf("failed to generate chat response: %w", err)
	}

	return ChatResult{Response: response, OriginalMessage: req.Message}, nil
}

// CoverLetterTask returns a task generating the cover letter for jobID
func (s *TextService) CoverLetterTask(jobID string) worker.TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		return s.CoverLetter(ctx, jobID)
	}
}

// CoverLetter writes a tailored cover letter for the job and records its path.
// A generator failure falls back to a plain template.
func (s *TextService) CoverLetter(ctx context.Context, jobID string) (CoverLetterResult, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return CoverLetterResult{}, fmt.Errorf("failed to fetch job: %w", err)
	}

	profile, err := s.profiles.Get(ctx, s.profileID)
	if err != nil {
		return CoverLetterResult{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	generated := true
	letter, err := s.generator.Generate(ctx, coverLetterPrompt(job, profile), "")
	if err != nil || strings.TrimSpace(letter) == "" {
		slog.Warn("Cover letter generation failed, using fallback", "job_id", jobID, "error", err)
		letter = fallbackCoverLetter(job, profile)
		generated = false
	}

	dir := filepath.Join(s.outputDir, "cover_letters")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CoverLetterResult{}, fmt.Errorf("failed to create cover letter dir: %w", err)
	}
	path := filepath.Join(dir, coverLetterFileName(job))
	if err := os.WriteFile(path, []byte(strings.TrimSpace(letter)+"\n"), 0o644); err != nil {
		return CoverLetterResult{}, fmt.Errorf("failed to write cover letter: %w", err)
	}

	if err := s.jobs.UpdateFields(ctx, jobID, map[string]interface{}{"cover_letter_path": path}); err != nil {
		return CoverLetterResult{}, fmt.Errorf("failed to record cover letter path: %w", err)
	}

	slog.Info("Cover letter written", "job_id", jobID, "path", path, "generated", generated)
	return CoverLetterResult{JobID: jobID, CoverLetterPath: path, Generated: generated}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

func coverLetterFileName(job *model.Job) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(job.Company+"-"+job.Title), "_"), "_")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	id := job.ID.Hex()
	if slug == "" {
		return id + ".txt"
	}
	return fmt.Sprintf("%s_%s.txt", id, slug)
}

func coverLetterPrompt(job *model.Job, p *model.CandidateProfile) string {
	description := job.Description
	if len(description) > 2000 {
		description = description[:2000]
	}
	if description == "" {
		description = "Not available"
	}

	var b strings.Builder
	b.WriteString("Write a professional cover letter for this job application.\n\n")
	b.WriteString("CANDIDATE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", p.FullName)
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "- Key Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "- Current Location: %s\n", p.Location)
	}
	if p.Summary != "" {
		fmt.Fprintf(&b, "- Summary: %s\n", p.Summary)
	}
	b.WriteString("\nJOB:\n")
	fmt.Fprintf(&b, "- Title: %s\n- Company: %s\n- Location: %s\n- Description: %s\n",
		job.Title, job.Company, job.Location, description)
	fmt.Fprintf(&b, "\nSTYLE: %s\n\n", letterStyle(job.Location))
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Keep it concise (250-350 words)\n")
	b.WriteString("2. Highlight 2-3 skills that match the job\n")
	fmt.Fprintf(&b, "3. %s\n", relocationNote(p.Location, job.Location))
	b.WriteString("4. Close with a confident call to action\n\n")
	b.WriteString("Return ONLY the cover letter text.")
	return b.String()
}

func letterStyle(location string) string {
	loc := strings.ToLower(location)
	switch {
	case containsWord(loc, "germany", "netherlands", "sweden", "europe"):
		return "European (concise, direct, professional)"
	case containsWord(loc, "uk", "london", "manchester"):
		return "British (professional, slightly formal)"
	case containsWord(loc, "usa", "united states", "remote"):
		return "American (confident, achievement-focused)"
	case containsWord(loc, "india", "mumbai", "bangalore", "hyderabad", "pune"):
		return "Indian (professional, detail-oriented)"
	case containsWord(loc, "singapore", "uae", "dubai"):
		return "International (professional, multicultural-aware)"
	}
	return "Professional (standard international)"
}

func relocationNote(current, target string) string {
	if current == "" || target == "" {
		return "Skip relocation mentions"
	}
	cur, tgt := strings.ToLower(current), strings.ToLower(target)
	if strings.Contains(tgt, "remote") {
		return "Mention comfort with remote work and async collaboration"
	}
	for _, word := range strings.Fields(cur) {
		if w := strings.Trim(word, ","); w != "" && strings.Contains(tgt, w) {
			return "No relocation mention needed"
		}
	}
	return "Briefly mention readiness to relocate to " + target
}

func containsWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func fallbackCoverLetter(job *model.Job, p *model.CandidateProfile) string {
	var b strings.Builder
	b.WriteString("Dear Hiring Manager,\n\n")
	fmt.Fprintf(&b, "I am applying for the %s position at %s.\n\n", job.Title, job.Company)
	if len(p.Skills) > 0 {
		skills := p.Skills
		if len(skills) > 5 {
			skills = skills[:5]
		}
		fmt.Fprintf(&b, "My experience with %s has prepared me to contribute to your team.\n\n", strings.Join(skills, ", "))
	}
	b.WriteString("I would welcome the opportunity to discuss how my experience aligns with your requirements.\n\n")
	fmt.Fprintf(&b, "Best regards,\n%s\n%s\n", p.FullName, p.Email)
	return b.String()
}
