package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/oreforged/internal/world"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB generation repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. worldgen
	Collection string // e.g. generations
}

// MongoGenerationRepo implements GenerationRepo on MongoDB backend.
type MongoGenerationRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// generationDoc документ коллекции. Статистика хранится JSON-строкой:
// её карты индексируются ID блока, а не строками.
type generationDoc struct {
	ID         string            `bson:"_id"`
	Seed       int64             `bson:"seed"`
	Config     world.WorldConfig `bson:"config"`
	ChunkCount int               `bson:"chunk_count"`
	Stats      string            `bson:"stats"`
	CreatedAt  time.Time         `bson:"created_at"`
	UpdatedAt  time.Time         `bson:"updated_at"`
}

// NewMongoGenerationRepo establishes connection and returns repository.
func NewMongoGenerationRepo(cfg MongoConfig) (*MongoGenerationRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "worldgen"
	}
	if cfg.Collection == "" {
		cfg.Collection = "generations"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	repo := &MongoGenerationRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := repo.ensureIndexes(); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func (m *MongoGenerationRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	createdIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("created_at_desc"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, createdIdx)
	return err
}

func toDoc(rec GenerationRecord) (generationDoc, error) {
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return generationDoc{}, err
	}
	return generationDoc{
		ID:         rec.ID,
		Seed:       int64(rec.Seed),
		Config:     rec.Config,
		ChunkCount: rec.ChunkCount,
		Stats:      string(stats),
		CreatedAt:  rec.CreatedAt.UTC(),
		UpdatedAt:  rec.UpdatedAt.UTC(),
	}, nil
}

func (d generationDoc) record() (GenerationRecord, error) {
	rec := GenerationRecord{
		ID:         d.ID,
		Seed:       uint32(d.Seed),
		Config:     d.Config,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(d.Stats), &rec.Stats); err != nil {
		return GenerationRecord{}, fmt.Errorf("decode stats of %s: %w", d.ID, err)
	}
	return rec, nil
}

// Save implements GenerationRepo (upsert by _id).
func (m *MongoGenerationRepo) Save(ctx context.Context, rec GenerationRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	doc, err := toDoc(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// Load implements GenerationRepo.
func (m *MongoGenerationRepo) Load(ctx context.Context, id string) (GenerationRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc generationDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return GenerationRecord{}, false, nil
	}
	if err != nil {
		return GenerationRecord{}, false, err
	}
	rec, err := doc.record()
	if err != nil {
		return GenerationRecord{}, false, err
	}
	return rec, true, nil
}

// List implements GenerationRepo.
func (m *MongoGenerationRepo) List(ctx context.Context, limit int) ([]GenerationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(normalizeLimit(limit)))
	cur, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []generationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]GenerationRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete implements GenerationRepo.
func (m *MongoGenerationRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Close disconnects the client.
func (m *MongoGenerationRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
