package polls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quizzie/backend/internal/models"
	"github.com/quizzie/backend/pkg/mongodb"
)

// MongoRepository stores polls as documents in the polls collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a MongoDB-backed poll repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(mongodb.CollectionPolls)}
}

func decodePoll(res *mongo.SingleResult, action string) (*models.Poll, error) {
	var p models.Poll
	if err := res.Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return &p, nil
}

func (r *MongoRepository) Create(ctx context.Context, p *models.Poll) error {
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	return decodePoll(r.coll.FindOne(ctx, bson.M{"_id": id}), "find poll")
}

func (r *MongoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Poll, error) {
	opts := options.Find().SetSort(bson.D{{Key: "impressions", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"createdBy": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	list := make([]models.Poll, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode polls: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) UpdateQuestions(ctx context.Context, id string, questions []models.PollQuestion, updatedAt time.Time) (*models.Poll, error) {
	update := bson.M{"$set": bson.M{"questions": questions, "updatedAt": updatedAt}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodePoll(r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts), "update poll")
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (*models.Poll, error) {
	return decodePoll(r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}), "delete poll")
}

func (r *MongoRepository) IncrementImpressions(ctx context.Context, id string) (*models.Poll, error) {
	update := bson.M{"$inc": bson.M{"impressions": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodePoll(r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts), "increment impressions")
}
