package service

import (
	"context"
	"strings"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"go.mongodb.org/mongo-driver/bson"
)

// JobRepository is the storage used by JobService
type JobRepository interface {
	JobStore
	Create(ctx context.Context, job *model.Job) error
	List(ctx context.Context, filter bson.M, page, limit int) ([]model.Job, int64, error)
}

// JobService handles job catalogue queries
type JobService struct {
	repo JobRepository
}

// NewJobService creates a new job service
func NewJobService(repo JobRepository) *JobService {
	return &JobService{repo: repo}
}

// Create validates and stores a job
func (s *JobService) Create(ctx context.Context, job *model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, job)
}

// Get retrieves a job by ID
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves jobs filtered by status and source
func (s *JobService) List(ctx context.Context, status, source string, page, limit int) ([]model.JobListItem, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if source != "" {
		filter["source"] = strings.ToLower(source)
	}

	jobs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	items := make([]model.JobListItem, len(jobs))
	for i := range jobs {
		items[i] = jobs[i].ToListItem()
	}
	return items, total, nil
}

// ProfileRepository is the storage used by ProfileService
type ProfileRepository interface {
	ProfileStore
	Upsert(ctx context.Context, profile *model.CandidateProfile) error
}

// ProfileService reads and updates candidate profiles
type ProfileService struct {
	repo      ProfileRepository
	profileID string
}

// NewProfileService creates a profile service bound to the default profile id
func NewProfileService(repo ProfileRepository, profileID string) *ProfileService {
	if profileID == "" {
		profileID = model.DefaultProfileID
	}
	return &ProfileService{repo: repo, profileID: profileID}
}

// Get returns the default profile
func (s *ProfileService) Get(ctx context.Context) (*model.CandidateProfile, error) {
	return s.repo.Get(ctx, s.profileID)
}

// Update validates and replaces the default profile
func (s *ProfileService) Update(ctx context.Context, profile *model.CandidateProfile) error {
	profile.ID = s.profileID
	if err := profile.Validate(); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, profile)
}

// RunRepository is the storage used by RunService
type RunRepository interface {
	RunStore
	List(ctx context.Context, jobID string, page, limit int) ([]model.ApplicationRun, int64, error)
}

// RunService handles application run history queries
type RunService struct {
	repo RunRepository
}

// NewRunService creates a new run service
func NewRunService(repo RunRepository) *RunService {
	return &RunService{repo: repo}
}

// List retrieves run summaries, optionally for one job
func (s *RunService) List(ctx context.Context, jobID string, page, limit int) ([]model.RunSummary, int64, error) {
	runs, total, err := s.repo.List(ctx, jobID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]model.RunSummary, len(runs))
	for i := range runs {
		summaries[i] = runs[i].ToSummary()
	}
	return summaries, total, nil
}
