// Package mongodb stores serialized collections as documents keyed by name.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type KVRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewKVRepository(client *mongo.Client, database, collection string) *KVRepository {
	return &KVRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

func (r *KVRepository) Name() string { return "mongo" }

func (r *KVRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("KVRepository.Load: find %s: %w", key, err)
	}
	return doc.Value, nil
}

func (r *KVRepository) Save(ctx context.Context, key string, data []byte) error {
	doc := kvDocument{Key: key, Value: data, UpdatedAt: time.Now().UTC()}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("KVRepository.Save: upsert %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
