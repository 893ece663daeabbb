// Package mongostore is the MongoDB backend: one collection per record type.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection      = "accounts"
	categoriesCollection    = "categories"
	transactionsCollection  = "transactions"
	preferencesCollection   = "user_preferences"
	currenciesCollection    = "currencies"
	notificationsCollection = "notifications"
	activityCollection      = "activity_log"
	archiveCollection       = "deleted_records"
)

// ErrNoDocument is returned by Collection.FindOne when nothing matches.
var ErrNoDocument = mongo.ErrNoDocuments

// FindOptions narrows Collection.Find.
type FindOptions struct {
	Sort  bson.D
	Skip  int64
	Limit int64
}

// Collection is the subset of *mongo.Collection the store needs, kept small
// so tests can substitute it.
type Collection interface {
	InsertOne(ctx context.Context, doc any) error
	FindOne(ctx context.Context, filter bson.M, out any) error
	Find(ctx context.Context, filter bson.M, opts FindOptions, out any) error
	UpdateOne(ctx context.Context, filter, update bson.M) (int64, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) Collection
}

type mongoCollection struct {
	*mongo.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.Collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", c.Name(), err)
	}
	return nil
}

func (c mongoCollection) FindOne(ctx context.Context, filter bson.M, out any) error {
	err := c.Collection.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoDocument
	}
	if err != nil {
		return fmt.Errorf("find one in %s: %w", c.Name(), err)
	}
	return nil
}

func (c mongoCollection) Find(ctx context.Context, filter bson.M, o FindOptions, out any) error {
	opts := options.Find()
	if len(o.Sort) > 0 {
		opts.SetSort(o.Sort)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		opts.SetLimit(o.Limit)
	}
	cur, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return nil
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update bson.M) (int64, error) {
	res, err := c.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("update in %s: %w", c.Name(), err)
	}
	return res.MatchedCount, nil
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.Collection.DeleteOne(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete in %s: %w", c.Name(), err)
	}
	return res.DeletedCount, nil
}

// Provider adapts a database handle to CollectionProvider.
type Provider struct {
	db *mongo.Database
}

func NewProvider(db *mongo.Database) *Provider {
	return &Provider{db: db}
}

func (p *Provider) Collection(name string) Collection {
	return mongoCollection{p.db.Collection(name)}
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	slog.DebugContext(ctx, "Connecting to MongoDB")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	slog.InfoContext(ctx, "Connected to MongoDB")
	return client, nil
}
