package database

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"heartmatch/repositories"
)

// Mongo holds the client and the collection handles of the heartmatch database.
type Mongo struct {
	Client            *mongo.Client
	Users             *mongo.Collection
	Matches           *mongo.Collection
	Messages          *mongo.Collection
	PushSubscriptions *mongo.Collection

	transactions bool
}

// Connect dials uri, pings it and retries a few times before giving up.
func Connect(ctx context.Context, uri, dbName string, transactions bool) (*Mongo, error) {
	var (
		client *mongo.Client
		err    error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		client, err = dial(ctx, uri)
		if err == nil {
			break
		}
		log.Warn("mongo connect failed", "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	log.Info("connected to MongoDB", "db", dbName, "transactions", transactions)
	return &Mongo{
		Client:            client,
		Users:             db.Collection("users"),
		Matches:           db.Collection("matches"),
		Messages:          db.Collection("messages"),
		PushSubscriptions: db.Collection("push_subscriptions"),
		transactions:      transactions,
	}, nil
}

func dial(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (m *Mongo) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return err
	}
	log.Info("disconnected from MongoDB")
	return nil
}

// EnsureIndexes creates the indexes the queries depend on. Creating an index
// that already exists is a no-op.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
	}); err != nil {
		return err
	}

	if _, err := m.Matches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "pairKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}).
				SetName("active_pair_unique"),
		},
		{Keys: bson.D{{Key: "users", Value: 1}, {Key: "isActive", Value: 1}, {Key: "lastMessageAt", Value: -1}}},
	}); err != nil {
		return err
	}

	if _, err := m.Messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "match", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "match", Value: 1}, {Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := m.PushSubscriptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// WithinTransaction runs fn in a session transaction when transactions are
// enabled (requires a replica set). Otherwise fn runs directly and a failure
// part way through is not rolled back.
func (m *Mongo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return fn(ctx)
	}
	session, err := m.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Store returns Mongo-backed repositories.
func (m *Mongo) Store() *repositories.Store {
	return &repositories.Store{
		Users:    repositories.NewMongoUserRepository(m.Users),
		Matches:  repositories.NewMongoMatchRepository(m.Matches),
		Messages: repositories.NewMongoMessageRepository(m.Messages),
		Pushes:   repositories.NewMongoPushSubscriptionRepository(m.PushSubscriptions),
		Tx:       m,
	}
}
