package quizzes

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

// MongoRepository stores quizzes as documents in the quizzes collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a MongoDB-backed quiz repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(mongodb.CollectionQuizzes)}
}

func decodeQuiz(res *mongo.SingleResult, action string) (*models.Quiz, error) {
	var q models.Quiz
	if err := res.Decode(&q); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return &q, nil
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (r *MongoRepository) Create(ctx context.Context, q *models.Quiz) error {
	if _, err := r.coll.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	return decodeQuiz(r.coll.FindOne(ctx, bson.M{"_id": id}), "find quiz")
}

func (r *MongoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "impressions", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"createdBy": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	list := make([]models.Quiz, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode quizzes: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) UpdateQuestions(ctx context.Context, id string, questions []models.QuizQuestion, updatedAt time.Time) (*models.Quiz, error) {
	update := bson.M{"$set": bson.M{"questions": questions, "updatedAt": updatedAt}}
	return decodeQuiz(r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter), "update quiz")
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (*models.Quiz, error) {
	return decodeQuiz(r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}), "delete quiz")
}

// IncrementImpressions uses $inc so concurrent increments never collide.
func (r *MongoRepository) IncrementImpressions(ctx context.Context, id string) (*models.Quiz, error) {
	update := bson.M{"$inc": bson.M{"impressions": 1}}
	return decodeQuiz(r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter), "increment impressions")
}
