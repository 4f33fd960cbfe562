package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobRepository handles job posting documents
type JobRepository struct {
	collection *mongo.Collection
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *MongoDB) *JobRepository {
	return &JobRepository{
		collection: db.GetCollection(CollectionJobs),
	}
}

// Create inserts a new job
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, job)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("job with url '%s': %w", job.URL, ErrDuplicate)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by its hex ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*model.Job, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var job model.Job
	err = r.collection.FindOne(ctxTimeout, bson.M{"_id": oid}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List retrieves jobs with filtering and pagination, newest first
func (r *JobRepository) List(ctx context.Context, filter bson.M, page, limit int) ([]model.Job, int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := r.collection.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "metadata.created_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var jobs []model.Job
	if err := cursor.All(ctxTimeout, &jobs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode jobs: %w", err)
	}

	return jobs, total, nil
}

// FindReadyToApply returns jobs with a generated resume that have not been applied to yet
func (r *JobRepository) FindReadyToApply(ctx context.Context, limit int) ([]model.Job, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"status":      model.JobStatusResumeGenerated,
		"resume_path": bson.M{"$nin": bson.A{nil, ""}},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "metadata.created_at", Value: 1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find jobs ready to apply: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var jobs []model.Job
	if err := cursor.All(ctxTimeout, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs ready to apply: %w", err)
	}

	return jobs, nil
}

// UpdateFields sets the given fields on a job and bumps metadata.updated_at
func (r *JobRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"metadata.updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctxTimeout, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	return nil
}
