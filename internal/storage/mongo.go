package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annel0/biome-terrain/internal/world"
)

// MongoOptions contains connection settings for the MongoDB placement repository.
type MongoOptions struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. terrain
	Collection string // e.g. placements
}

// MongoPlacementRepo implements PlacementRepository on MongoDB backend.
type MongoPlacementRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type placementDoc struct {
	ID       string     `bson:"_id"`
	Organism string     `bson:"organism"`
	Position [3]float64 `bson:"position"`
	Scale    float64    `bson:"scale"`
	Rotation float64    `bson:"rotation"`
	Float    bool       `bson:"float"`
	Source   string     `bson:"source"`
	Origin   string     `bson:"origin,omitempty"`
	Row      int        `bson:"chunk_row"`
	Col      int        `bson:"chunk_col"`
	Updated  time.Time  `bson:"updated_at"`
}

func toDoc(p world.Placement) placementDoc {
	return placementDoc{
		ID:       p.ID,
		Organism: p.Organism,
		Position: [3]float64{p.Position.X(), p.Position.Y(), p.Position.Z()},
		Scale:    p.Scale,
		Rotation: p.Rotation,
		Float:    p.Float,
		Source:   string(p.Source),
		Origin:   p.Origin,
		Row:      p.Chunk.Row,
		Col:      p.Chunk.Col,
		Updated:  time.Now().UTC(),
	}
}

func (d placementDoc) placement() world.Placement {
	return world.Placement{
		ID:         d.ID,
		Organism:   d.Organism,
		Position:   mgl64.Vec3{d.Position[0], d.Position[1], d.Position[2]},
		Scale:      d.Scale,
		Rotation:   d.Rotation,
		Float:      d.Float,
		Persistent: true,
		Source:     world.Source(d.Source),
		Chunk:      world.ChunkCoord{Row: d.Row, Col: d.Col},
		Origin:     d.Origin,
	}
}

// NewMongoPlacementRepo establishes connection and returns repository.
func NewMongoPlacementRepo(cfg MongoOptions) (*MongoPlacementRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "terrain"
	}
	if cfg.Collection == "" {
		cfg.Collection = "placements"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	repo := &MongoPlacementRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return repo, nil
}

func (m *MongoPlacementRepo) ensureIndexes(ctx context.Context) error {
	chunkIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "chunk_row", Value: 1}, {Key: "chunk_col", Value: 1}},
		Options: options.Index().SetName("chunk"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, chunkIdx)
	return err
}

// Save upserts the placement document.
func (m *MongoPlacementRepo) Save(ctx context.Context, p world.Placement) error {
	if err := validate(p); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, toDoc(p), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save %s: %w", p.ID, err)
	}
	return nil
}

// LoadChunk returns placements of a chunk ordered by id.
func (m *MongoPlacementRepo) LoadChunk(ctx context.Context, c world.ChunkCoord) ([]world.Placement, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	cur, err := m.collection.Find(ctx,
		bson.M{"chunk_row": c.Row, "chunk_col": c.Col},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo load chunk %s: %w", c, err)
	}
	defer cur.Close(ctx)

	var docs []placementDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode chunk %s: %w", c, err)
	}
	out := make([]world.Placement, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.placement())
	}
	return out, nil
}

// Get returns a placement by id.
func (m *MongoPlacementRepo) Get(ctx context.Context, id string) (world.Placement, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	var doc placementDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return world.Placement{}, ErrNotFound
	}
	if err != nil {
		return world.Placement{}, fmt.Errorf("mongo get %s: %w", id, err)
	}
	return doc.placement(), nil
}

// Delete removes a placement.
func (m *MongoPlacementRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Close disconnects the client.
func (m *MongoPlacementRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
