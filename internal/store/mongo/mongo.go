// Package mongo backs the remote document store with a MongoDB collection,
// one document per ledger key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cassa/internal/store"
)

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ store.DocumentStore = (*Store)(nil)

type ledgerDoc struct {
	Key       string    `bson:"_id"`
	Doc       []byte    `bson:"doc"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// New connects to MongoDB and pings it before returning the store.
func New(ctx context.Context, uri, dbName, collName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(dbName).Collection(collName),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc ledgerDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger document: %w", err)
	}
	return doc.Doc, nil
}

func (s *Store) Put(ctx context.Context, key string, doc []byte) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		ledgerDoc{Key: key, Doc: doc, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert ledger document: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete ledger document: %w", err)
	}
	return nil
}
