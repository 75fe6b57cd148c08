package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUploadLedger implements domain.UploadLedger using MongoDB
type MongoUploadLedger struct {
	collection *mongo.Collection
}

// NewMongoUploadLedger creates the ledger and ensures its indexes
func NewMongoUploadLedger(ctx context.Context, db *mongo.Database) (*MongoUploadLedger, error) {
	collection := db.Collection("uploads")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "path", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upload indexes: %w", err)
	}

	return &MongoUploadLedger{collection: collection}, nil
}

// Record stores a new upload record
func (r *MongoUploadLedger) Record(ctx context.Context, record *domain.UploadRecord) error {
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

// DeleteByPath removes the record for path
func (r *MongoUploadLedger) DeleteByPath(ctx context.Context, path string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"path": path})
	if err != nil {
		return fmt.Errorf("failed to delete upload record: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns the newest records first
func (r *MongoUploadLedger) ListRecent(ctx context.Context, limit int64) ([]*domain.UploadRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*domain.UploadRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode uploads: %w", err)
	}
	return records, nil
}
