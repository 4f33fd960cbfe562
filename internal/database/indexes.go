package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes creates all necessary indexes for the collections
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	slog.Info("Creating MongoDB indexes")

	for _, spec := range indexSpecs() {
		if err := createIndexes(ctx, db, spec.collection, spec.indexes); err != nil {
			return err
		}
	}

	slog.Info("Successfully created all MongoDB indexes")
	return nil
}

type collectionIndexes struct {
	collection string
	indexes    []mongo.IndexModel
}

func indexSpecs() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: CollectionJobs,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "url", Value: 1}},
					Options: options.Index().SetUnique(true).SetName("idx_url_unique"),
				},
				{
					Keys: bson.D{
						{Key: "status", Value: 1},
						{Key: "metadata.created_at", Value: -1},
					},
					Options: options.Index().SetName("idx_status_created_at"),
				},
				{
					Keys:    bson.D{{Key: "source", Value: 1}},
					Options: options.Index().SetName("idx_source"),
				},
			},
		},
		{
			collection: CollectionApplicationRuns,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "job_id", Value: 1},
						{Key: "started_at", Value: -1},
					},
					Options: options.Index().SetName("idx_job_id_started_at"),
				},
				{
					Keys:    bson.D{{Key: "started_at", Value: -1}},
					Options: options.Index().SetName("idx_started_at"),
				},
				{
					Keys:    bson.D{{Key: "task_id", Value: 1}},
					Options: options.Index().SetName("idx_task_id"),
				},
			},
		},
		{
			collection: CollectionDeliveryLogs,
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "final_status", Value: 1},
						{Key: "created_at", Value: -1},
					},
					Options: options.Index().SetName("idx_final_status_created_at"),
				},
				{
					Keys:    bson.D{{Key: "task_id", Value: 1}},
					Options: options.Index().SetName("idx_task_id"),
				},
			},
		},
		{
			collection: CollectionSchedulerLocks,
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "name", Value: 1}},
					Options: options.Index().SetUnique(true).SetName("idx_name_unique"),
				},
				{
					Keys:    bson.D{{Key: "expires_at", Value: 1}},
					Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_expires_at_ttl"),
				},
				{
					Keys:    bson.D{{Key: "locked_by", Value: 1}},
					Options: options.Index().SetName("idx_locked_by"),
				},
			},
		},
	}
}

func createIndexes(ctx context.Context, db *MongoDB, name string, indexes []mongo.IndexModel) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := db.GetCollection(name).Indexes().CreateMany(ctxTimeout, indexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", name, err)
	}

	slog.Info("Created indexes", "collection", name, "count", len(indexes))
	return nil
}
