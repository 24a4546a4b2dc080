package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/types"
)

// MongoStore mirrors article records into a MongoDB collection, one document
// per (day, requested_url).
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// mongoDoc is the stored document: the record plus its day partition key.
type mongoDoc struct {
	Day                        string `bson:"day"`
	types.ArticleContentRecord `bson:",inline"`
}

// NewMongoStore connects to MongoDB and ensures the (day, requested_url) index.
func NewMongoStore(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "day", Value: 1}, {Key: "requested_url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("create index: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

// Put upserts each record by (day, requested_url).
func (s *MongoStore) Put(ctx context.Context, day time.Time, records []types.ArticleContentRecord) error {
	if len(records) == 0 {
		return nil
	}

	dayKey := types.FormatDay(day)
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "day", Value: dayKey}, {Key: "requested_url", Value: rec.RequestedURL}}).
			SetReplacement(mongoDoc{Day: dayKey, ArticleContentRecord: rec}).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("bulk upsert: %w", err)}
	}

	s.logger.Debug("records upserted in mongodb",
		"day", dayKey,
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
	)
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
