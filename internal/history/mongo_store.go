package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements the Store interface using MongoDB as backend.
// Each entry is one document keyed by its ID.
type MongoStore struct {
	client         *mongo.Client
	collection     *mongo.Collection
	defaultTimeout time.Duration
}

// MongoConfig holds configuration for the MongoDB connection
type MongoConfig struct {
	URI          string
	Database     string
	Collection   string
	Timeout      time.Duration // Default timeout for operations
	ConnPoolSize uint64
}

// NewDefaultMongoConfig returns a default MongoDB configuration
func NewDefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:          "mongodb://localhost:27017",
		Database:     "mongoexpr",
		Collection:   "history",
		Timeout:      5 * time.Second,
		ConnPoolSize: 100,
	}
}

// NewMongoStore connects to MongoDB and ensures the createdAt index exists
func NewMongoStore(ctx context.Context, config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = NewDefaultMongoConfig()
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.ConnPoolSize).
		SetConnectTimeout(config.Timeout)

	connectCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	_, err = collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create history index: %w", err)
	}

	return &MongoStore{
		client:         client,
		collection:     collection,
		defaultTimeout: config.Timeout,
	}, nil
}

// Close closes the MongoDB connection
func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	return s.client.Disconnect(ctx)
}

// Add stores an entry, replacing any entry with the same ID
func (s *MongoStore) Add(ctx context.Context, entry Entry) (Entry, error) {
	entry, err := prepare(entry)
	if err != nil {
		return Entry{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	// Mongo stores millisecond precision; truncate so a round trip is lossless
	entry.CreatedAt = entry.CreatedAt.Truncate(time.Millisecond)

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry, opts); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Get retrieves an entry by ID
func (s *MongoStore) Get(ctx context.Context, id string) (Entry, error) {
	if err := validateID(id); err != nil {
		return Entry{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	var entry Entry
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

// List returns matching entries, newest first
func (s *MongoStore) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(opts.limit()))
	if opts.Skip > 0 {
		findOpts.SetSkip(int64(opts.Skip))
	}

	cursor, err := s.collection.Find(ctx, listFilter(opts), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes an entry by ID
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Clear removes every entry
func (s *MongoStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	_, err := s.collection.DeleteMany(ctx, bson.M{})
	return err
}

// Count returns the number of stored entries
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	return s.collection.CountDocuments(ctx, bson.M{})
}

// DisplayStoreInfo logs the entry count and the busiest collections
func (s *MongoStore) DisplayStoreInfo() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.defaultTimeout)
	defer cancel()

	log.Println("====== MongoDB History Information ======")
	log.Printf("Database: %s", s.collection.Database().Name())
	log.Printf("Collection: %s", s.collection.Name())

	count, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Printf("Error counting entries: %v", err)
		return err
	}
	log.Printf("Entries: %d", count)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recognized": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$collection", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: 10}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		log.Printf("Error aggregating collections: %v", err)
		return err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Collection string `bson:"_id"`
		Count      int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return err
	}

	log.Println("Collections:")
	if len(rows) == 0 {
		log.Println("  No recognized expressions")
	}
	for _, row := range rows {
		log.Printf("  %s: %d expressions", row.Collection, row.Count)
	}
	log.Println("=========================================")
	return nil
}

func listFilter(opts ListOptions) bson.M {
	filter := bson.M{}

	createdAt := bson.M{}
	if !opts.From.IsZero() {
		createdAt["$gte"] = opts.From
	}
	if !opts.To.IsZero() {
		createdAt["$lte"] = opts.To
	}
	if len(createdAt) > 0 {
		filter["createdAt"] = createdAt
	}

	if opts.Collection != "" {
		filter["collection"] = opts.Collection
	}
	if opts.Method != "" {
		filter["method"] = opts.Method
	}
	return filter
}
