package storage

import (
	"context"
	"errors"
	"time"

	"ChunkVault/internal/errs"
	"ChunkVault/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoChunk mirrors the GridFS chunks document, keyed by object name
// instead of an ObjectID.
type mongoChunk struct {
	FilesID    string    `bson:"files_id"`
	N          int       `bson:"n"`
	Data       []byte    `bson:"data"`
	UploadDate time.Time `bson:"uploadDate"`
}

// MongoStore keeps chunks in the "<bucket>.chunks" collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore builds a ChunkStore on db. EnsureIndexes must run once
// before writes to get the uniqueness guarantee on (files_id, n).
func NewMongoStore(db *mongo.Database, bucket string) *MongoStore {
	return &MongoStore{coll: db.Collection(bucket + ".chunks")}
}

// EnsureIndexes creates the unique (files_id, n) index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *MongoStore) PutChunk(ctx context.Context, name string, index int, data []byte) error {
	doc := mongoChunk{
		FilesID:    name,
		N:          index,
		Data:       append([]byte(nil), data...),
		UploadDate: time.Now().UTC(),
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"files_id": name, "n": index},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) GetChunk(ctx context.Context, name string, index int) ([]byte, error) {
	var doc mongoChunk
	err := s.coll.FindOne(ctx, bson.M{"files_id": name, "n": index}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFound("get chunk", name)
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (s *MongoStore) RemoveChunks(ctx context.Context, name string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"files_id": name})
	return err
}

func (s *MongoStore) ListOwners(ctx context.Context) ([]model.ChunkOwner, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$files_id"},
			{Key: "chunks", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "oldest", Value: bson.D{{Key: "$min", Value: "$uploadDate"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var owners []model.ChunkOwner
	for cursor.Next(ctx) {
		var row struct {
			Name   string    `bson:"_id"`
			Chunks int       `bson:"chunks"`
			Oldest time.Time `bson:"oldest"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		owners = append(owners, model.ChunkOwner{
			ObjectName: row.Name,
			Chunks:     row.Chunks,
			OldestAt:   row.Oldest,
		})
	}
	return owners, cursor.Err()
}
