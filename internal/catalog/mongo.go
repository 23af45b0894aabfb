package catalog

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

// mongoRecord mirrors the GridFS files document with the generated name
// as its _id.
type mongoRecord struct {
	Name        string            `bson:"_id"`
	Filename    string            `bson:"filename"`
	ContentType string            `bson:"contentType"`
	Length      int64             `bson:"length"`
	ChunkSize   int64             `bson:"chunkSize"`
	Checksum    string            `bson:"checksum,omitempty"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	UploadDate  time.Time         `bson:"uploadDate"`
}

func toMongoRecord(r *model.ObjectRecord) mongoRecord {
	return mongoRecord{
		Name:        r.Name,
		Filename:    r.Name,
		ContentType: r.ContentType,
		Length:      r.Length,
		ChunkSize:   r.ChunkSize,
		Checksum:    r.Checksum,
		Metadata:    r.Metadata.Clone(),
		UploadDate:  r.CreatedAt.UTC(),
	}
}

func (m mongoRecord) toModel() model.ObjectRecord {
	return model.ObjectRecord{
		Name:        m.Name,
		ContentType: m.ContentType,
		Length:      m.Length,
		ChunkSize:   m.ChunkSize,
		Checksum:    m.Checksum,
		Metadata:    model.Metadata(m.Metadata).Clone(),
		CreatedAt:   m.UploadDate,
	}
}

// Mongo keeps records in the "<bucket>.files" collection.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo builds a Catalog on db.
func NewMongo(db *mongo.Database, bucket string) *Mongo {
	return &Mongo{coll: db.Collection(bucket + ".files")}
}

// EnsureIndexes creates the index used by ListAll.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.coll.Database().Client().Ping(ctx, nil)
}

func (m *Mongo) Put(ctx context.Context, record *model.ObjectRecord) error {
	_, err := m.coll.InsertOne(ctx, toMongoRecord(record))
	if mongo.IsDuplicateKeyError(err) {
		return errs.DuplicateName("put", record.Name)
	}
	return err
}

func (m *Mongo) GetByName(ctx context.Context, name string) (*model.ObjectRecord, error) {
	var doc mongoRecord
	err := m.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFound("get by name", name)
	}
	if err != nil {
		return nil, err
	}
	record := doc.toModel()
	return &record, nil
}

func (m *Mongo) ListAll(ctx context.Context) ([]model.ObjectRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]model.ObjectRecord, 0)
	for cursor.Next(ctx) {
		var doc mongoRecord
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, doc.toModel())
	}
	return records, cursor.Err()
}

// Delete uses FindOneAndDelete so the removal and the returned record are
// one atomic document operation.
func (m *Mongo) Delete(ctx context.Context, name string) (*model.ObjectRecord, error) {
	var doc mongoRecord
	err := m.coll.FindOneAndDelete(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFound("delete", name)
	}
	if err != nil {
		return nil, err
	}
	record := doc.toModel()
	return &record, nil
}
