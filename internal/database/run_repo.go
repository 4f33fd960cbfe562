package database

import (
	"context"
	"fmt"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RunRepository stores the audit trail of automation runs
type RunRepository struct {
	collection *mongo.Collection
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *MongoDB) *RunRepository {
	return &RunRepository{
		collection: db.GetCollection(CollectionApplicationRuns),
	}
}

// Create inserts a run record
func (r *RunRepository) Create(ctx context.Context, run *model.ApplicationRun) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctxTimeout, run); err != nil {
		return fmt.Errorf("failed to create application run: %w", err)
	}

	return nil
}

// List retrieves runs, newest first, optionally for a single job
func (r *RunRepository) List(ctx context.Context, jobID string, page, limit int) ([]model.ApplicationRun, int64, error) {
	filter := bson.M{}
	if jobID != "" {
		oid, err := parseObjectID(jobID)
		if err != nil {
			return nil, 0, err
		}
		filter["job_id"] = oid
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := r.collection.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count application runs: %w", err)
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "started_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list application runs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var runs []model.ApplicationRun
	if err := cursor.All(ctxTimeout, &runs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode application runs: %w", err)
	}

	return runs, total, nil
}
