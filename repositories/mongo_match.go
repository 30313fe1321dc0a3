package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"heartmatch/models"
)

type MongoMatchRepository struct {
	col *mongo.Collection
}

func NewMongoMatchRepository(col *mongo.Collection) *MongoMatchRepository {
	return &MongoMatchRepository{col: col}
}

// UpsertActive relies on the unique partial index on pairKey (isActive: true):
// two concurrent upserts for the same pair cannot both insert, and the loser
// reads back the winner's document.
func (r *MongoMatchRepository) UpsertActive(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	filter := bson.M{"pairKey": m.PairKey, "isActive": true}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":           m.ID,
		"users":         m.Users,
		"matchedAt":     m.MatchedAt,
		"lastMessageAt": m.LastMessageAt,
		"unreadCount":   m.UnreadCount,
		"createdAt":     m.CreatedAt,
		"updatedAt":     m.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.Match
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		if err := r.col.FindOne(ctx, filter).Decode(&out); err != nil {
			return nil, false, err
		}
		return &out, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &out, out.ID == m.ID, nil
}

func (r *MongoMatchRepository) FindActiveByPair(ctx context.Context, pair models.Pair) (*models.Match, error) {
	return r.findOne(ctx, bson.M{"pairKey": pair.Key(), "isActive": true})
}

func (r *MongoMatchRepository) GetActive(ctx context.Context, id primitive.ObjectID) (*models.Match, error) {
	return r.findOne(ctx, bson.M{"_id": id, "isActive": true})
}

func (r *MongoMatchRepository) findOne(ctx context.Context, filter bson.M) (*models.Match, error) {
	var m models.Match
	err := r.col.FindOne(ctx, filter).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MongoMatchRepository) ListActiveForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Match, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"users": userID, "isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	matches := make([]models.Match, 0)
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *MongoMatchRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.updateActive(ctx, id, bson.M{
		"$set": bson.M{"isActive": false, "updatedAt": time.Now()},
	})
}

func (r *MongoMatchRepository) RecordMessage(ctx context.Context, id, recipient primitive.ObjectID, at time.Time) error {
	return r.updateActive(ctx, id, bson.M{
		"$set": bson.M{"lastMessageAt": at, "updatedAt": at},
		"$inc": bson.M{"unreadCount." + recipient.Hex(): 1},
	})
}

func (r *MongoMatchRepository) ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"unreadCount." + userID.Hex(): 0}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMatchRepository) updateActive(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "isActive": true}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
