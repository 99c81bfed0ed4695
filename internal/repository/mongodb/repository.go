// Package mongodb archives weekly report snapshots.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Repository defines the interface for snapshot storage.
type Repository interface {
	SaveSnapshot(ctx context.Context, snap models.ReportSnapshot) error
	ListSnapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "report_snapshots",
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveSnapshot stores the snapshot of a period, replacing an earlier close of the same period.
func (r *MongoDBRepository) SaveSnapshot(ctx context.Context, snap models.ReportSnapshot) error {
	filter := bson.M{"period_start": snap.PeriodStart, "period_end": snap.PeriodEnd}
	_, err := r.collection().ReplaceOne(ctx, filter, snap, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert report snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the most recent snapshots, newest period first.
func (r *MongoDBRepository) ListSnapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error) {
	if limit <= 0 {
		limit = 12
	}
	opts := options.Find().SetSort(bson.D{{Key: "period_start", Value: -1}}).SetLimit(limit)
	cur, err := r.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query report snapshots: %w", err)
	}
	var out []models.ReportSnapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode report snapshots: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
