package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

// MongoDocStore implements DocStore on a MongoDB database. Document ids are
// stored in _id.
type MongoDocStore struct {
	db *mongo.Database
}

func NewMongoDocStore(db *mongo.Database) *MongoDocStore {
	return &MongoDocStore{db: db}
}

func (s *MongoDocStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	return s.db.Client().Ping(ctx, nil)
}

func (s *MongoDocStore) Get(ctx context.Context, collection, id string, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoDocStore) Apply(ctx context.Context, collection, id string, m Mutation) error {
	if m.empty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	update := bson.M{}
	if len(m.Set) > 0 {
		update["$set"] = m.Set
	}
	if len(m.SetOnInsert) > 0 {
		update["$setOnInsert"] = m.SetOnInsert
	}
	if len(m.Inc) > 0 {
		update["$inc"] = m.Inc
	}
	if len(m.Unset) > 0 {
		unset := bson.M{}
		for _, field := range m.Unset {
			unset[field] = ""
		}
		update["$unset"] = unset
	}

	opts := options.Update().SetUpsert(m.upserts())
	_, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}

func (s *MongoDocStore) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoDocStore) Top(ctx context.Context, collection, field string, limit int64, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: -1}}).
		SetLimit(limit)

	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	return cur.All(ctx, dest)
}

func (s *MongoDocStore) Range(ctx context.Context, collection, field string, lo, hi float64, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{field: bson.M{"$gte": lo, "$lte": hi}}
	cur, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	return cur.All(ctx, dest)
}

// EnsureIndexes configures the secondary indexes the facade sorts on.
// Called on startup from main after Mongo has connected.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	col := db.Collection(CollectionPopularSearch)
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "count", Value: -1}},
		Options: options.Index().SetName("idx_popular_count"),
	}
	if _, err := col.Indexes().CreateOne(ctx, model); err != nil {
		return err
	}

	places := mongo.IndexModel{
		Keys:    bson.D{{Key: "latitude", Value: 1}},
		Options: options.Index().SetName("idx_places_latitude"),
	}
	_, err := db.Collection(CollectionPlaces).Indexes().CreateOne(ctx, places)
	return err
}
