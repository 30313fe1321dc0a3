package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"heartmatch/models"
)

type MongoMessageRepository struct {
	col *mongo.Collection
}

func NewMongoMessageRepository(col *mongo.Collection) *MongoMessageRepository {
	return &MongoMessageRepository{col: col}
}

func (r *MongoMessageRepository) Create(ctx context.Context, m *models.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MongoMessageRepository) ListByMatch(ctx context.Context, matchID primitive.ObjectID, skip, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"match": matchID, "isDeleted": bson.M{"$ne": true}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]models.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MongoMessageRepository) MarkRead(ctx context.Context, matchID, reader primitive.ObjectID, at time.Time, ids ...primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"match":     matchID,
		"recipient": reader,
		"isRead":    false,
		"isDeleted": bson.M{"$ne": true},
	}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	res, err := r.col.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
