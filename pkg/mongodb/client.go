// Package mongodb connects to MongoDB and prepares the collections used as the document store.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	CollectionUsers   = "users"
	CollectionQuizzes = "quizzes"
	CollectionPolls   = "polls"
)

// Client wraps a mongo client bound to one database.
type Client struct {
	*mongo.Client
	DB     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB and verifies connectivity. Close must be called on shutdown.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("MongoDB client connected", zap.String("database", database))
	return &Client{Client: client, DB: client.Database(database), logger: logger}, nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}

// EnsureIndexes creates the unique email index and the owner listing indexes.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.DB.Collection(CollectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	for _, name := range []string{CollectionQuizzes, CollectionPolls} {
		_, err := c.DB.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "impressions", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("%s owner index: %w", name, err)
		}
	}
	c.logger.Debug("mongo indexes ensured")
	return nil
}
