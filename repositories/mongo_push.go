package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"heartmatch/models"
)

type MongoPushSubscriptionRepository struct {
	col *mongo.Collection
}

func NewMongoPushSubscriptionRepository(col *mongo.Collection) *MongoPushSubscriptionRepository {
	return &MongoPushSubscriptionRepository{col: col}
}

func (r *MongoPushSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx,
		bson.M{"userId": sub.UserID},
		bson.M{"$set": bson.M{"endpoint": sub.Endpoint, "keys": sub.Keys}},
		opts,
	)
	return err
}

func (r *MongoPushSubscriptionRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := r.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *MongoPushSubscriptionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
