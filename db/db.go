package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements services.Store on top of MongoDB
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// extractDBName parses the database name from the URI, defaulting to "debatehub"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "debatehub"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "debatehub"
}

// Connect establishes a connection to MongoDB and prepares indexes
func Connect(uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	log.Printf("Using database: %s", dbName)

	store := &MongoStore{
		client:   client,
		database: client.Database(dbName),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) debates() *mongo.Collection    { return s.database.Collection("debates") }
func (s *MongoStore) statements() *mongo.Collection { return s.database.Collection("statements") }
func (s *MongoStore) judges() *mongo.Collection     { return s.database.Collection("judges") }
func (s *MongoStore) verdicts() *mongo.Collection   { return s.database.Collection("verdicts") }
func (s *MongoStore) users() *mongo.Collection      { return s.database.Collection("users") }

// ensureIndexes creates the lookup and uniqueness indexes the engine relies on.
// The partial unique index on statements backs the one-real-statement-per-
// author-per-round invariant at the storage layer as well as in the service.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.debates().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "roundDeadline", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create debate indexes: %w", err)
	}

	_, err = s.statements().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "debateId", Value: 1}, {Key: "round", Value: 1}}},
		{
			Keys: bson.D{{Key: "debateId", Value: 1}, {Key: "authorId", Value: 1}, {Key: "round", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"forfeit": bson.M{"$ne": true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create statement indexes: %w", err)
	}

	_, err = s.verdicts().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "debateId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create verdict index: %w", err)
	}
	return nil
}

// Disconnect closes the underlying client
func (s *MongoStore) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func optionsFindSort(sort bson.D) *options.FindOptions {
	return options.Find().SetSort(sort)
}
