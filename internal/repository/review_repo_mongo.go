package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reviewsCollection = "reviews"

type reviewDocument struct {
	ID           string    `bson:"_id"`
	TravelPlanID string    `bson:"travel_plan_id"`
	AuthorUserID string    `bson:"author_user_id"`
	Rating       int       `bson:"rating"`
	Content      string    `bson:"content"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoReviewRepository keeps reviews in a MongoDB collection with a unique
// (travel_plan_id, author_user_id) index.
type MongoReviewRepository struct {
	coll *mongo.Collection
}

func NewMongoReviewRepository(ctx context.Context, db *mongo.Database) (ReviewRepository, error) {
	coll := db.Collection(reviewsCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "travel_plan_id", Value: 1}, {Key: "author_user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create reviews index: %w", err)
	}
	return &MongoReviewRepository{coll: coll}, nil
}

func (r *MongoReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	review.CreatedAt = time.Now().UTC()
	_, err := r.coll.InsertOne(ctx, reviewDocument{
		ID:           review.ID,
		TravelPlanID: review.TravelPlanID,
		AuthorUserID: review.AuthorUserID,
		Rating:       review.Rating,
		Content:      review.Content,
		CreatedAt:    review.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.Conflictf("user %s already reviewed plan %s", review.AuthorUserID, review.TravelPlanID)
	}
	return err
}

func (r *MongoReviewRepository) ListByPlan(ctx context.Context, planID string) ([]domain.Review, error) {
	cur, err := r.coll.Find(ctx, bson.M{"travel_plan_id": planID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		reviews = append(reviews, domain.Review{
			ID:           d.ID,
			TravelPlanID: d.TravelPlanID,
			AuthorUserID: d.AuthorUserID,
			Rating:       d.Rating,
			Content:      d.Content,
			CreatedAt:    d.CreatedAt,
		})
	}
	return reviews, nil
}

func (r *MongoReviewRepository) ReviewedPlanIDs(ctx context.Context, authorID string) (map[string]struct{}, error) {
	values, err := r.coll.Distinct(ctx, "travel_plan_id", bson.M{"author_user_id": authorID})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

var _ ReviewRepository = (*MongoReviewRepository)(nil)
