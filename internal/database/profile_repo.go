package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepository handles candidate profiles, keyed by a string ID
type ProfileRepository struct {
	collection *mongo.Collection
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *MongoDB) *ProfileRepository {
	return &ProfileRepository{
		collection: db.GetCollection(CollectionProfiles),
	}
}

// Get retrieves a profile by ID
func (r *ProfileRepository) Get(ctx context.Context, id string) (*model.CandidateProfile, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var profile model.CandidateProfile
	err := r.collection.FindOne(ctxTimeout, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// Upsert replaces the profile, creating it when missing
func (r *ProfileRepository) Upsert(ctx context.Context, profile *model.CandidateProfile) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctxTimeout, bson.M{"_id": profile.ID}, profile, opts); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}
