package database

import (
	"context"
	"fmt"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DeliveryRepository stores webhook delivery logs for lifecycle events
type DeliveryRepository struct {
	collection *mongo.Collection
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *MongoDB) *DeliveryRepository {
	return &DeliveryRepository{
		collection: db.GetCollection(CollectionDeliveryLogs),
	}
}

// Create inserts a delivery log
func (r *DeliveryRepository) Create(ctx context.Context, log *model.DeliveryLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctxTimeout, log); err != nil {
		return fmt.Errorf("failed to create delivery log: %w", err)
	}

	return nil
}
