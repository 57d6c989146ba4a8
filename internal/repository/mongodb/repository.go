package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/repository"
)

// MongoDBRepository implements repository.Store on top of a MongoDB database.
// Every named collection maps to a MongoDB collection; document ids are stored as string _id values.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
		logger: logger,
	}, nil
}

func (r *MongoDBRepository) coll(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// List returns every document of a collection. A missing collection yields an empty slice.
func (r *MongoDBRepository) List(ctx context.Context, collection string) ([]repository.Document, error) {
	cursor, err := r.coll(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []repository.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode document in %s: %w", collection, err)
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	r.logger.Debug("collection listed", zap.String("collection", collection), zap.Int("count", len(docs)))
	return docs, nil
}

// Get fetches a single document by id.
func (r *MongoDBRepository) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	var raw bson.M
	err := r.coll(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.Document{}, fmt.Errorf("%s/%s: %w", collection, id, repository.ErrNotFound)
	}
	if err != nil {
		return repository.Document{}, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return toDocument(raw), nil
}

// Create inserts data under a freshly generated id and returns it.
func (r *MongoDBRepository) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()
	payload := bson.M{"_id": id}
	for k, v := range repository.StripID(data) {
		payload[k] = v
	}

	if _, err := r.coll(collection).InsertOne(ctx, payload); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return id, nil
}

// CreateWithID writes data under the caller supplied id, replacing any existing document.
func (r *MongoDBRepository) CreateWithID(ctx context.Context, collection, id string, data map[string]any) error {
	payload := bson.M{}
	for k, v := range repository.StripID(data) {
		payload[k] = v
	}

	_, err := r.coll(collection).ReplaceOne(ctx, bson.M{"_id": id}, payload, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update sets the top-level fields of partial on an existing document.
func (r *MongoDBRepository) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	fields := repository.StripID(partial)
	if len(fields) == 0 {
		return nil
	}

	res, err := r.coll(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, repository.ErrNotFound)
	}
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (r *MongoDBRepository) Delete(ctx context.Context, collection, id string) error {
	if _, err := r.coll(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toDocument(raw bson.M) repository.Document {
	var id string
	switch v := raw["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	default:
		id = fmt.Sprint(v)
	}
	delete(raw, "_id")
	return repository.Document{ID: id, Data: map[string]any(raw)}
}

var _ repository.Store = (*MongoDBRepository)(nil)
