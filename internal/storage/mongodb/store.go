// Package mongodb implements a pmode.Manager backed by MongoDB
package mongodb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
)

// Store implements pmode.Manager using MongoDB. Processing modes are kept
// as YAML documents so tri-state fields survive the round trip; service
// and action are copied out for lookups.
type Store struct {
	client *mongo.Client
	pmodes *mongo.Collection
	now    func() time.Time
}

var _ pmode.Manager = (*Store)(nil)

// Config holds MongoDB connection settings
type Config struct {
	URI        string
	Database   string
	Collection string
}

// pmodeDocument is the stored form of a processing mode
type pmodeDocument struct {
	ID        string    `bson:"_id"`
	Service   string    `bson:"service,omitempty"`
	Action    string    `bson:"action,omitempty"`
	Agreement string    `bson:"agreement,omitempty"`
	Document  string    `bson:"document"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewStore connects to MongoDB and prepares the P-Mode collection
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "pmodes"
	}

	s := &Store{
		client: client,
		pmodes: client.Database(cfg.Database).Collection(collection),
		now:    time.Now,
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.pmodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "service", Value: 1}, {Key: "action", Value: 1}}},
		{Keys: bson.D{{Key: "agreement", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating pmode indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Create inserts a new processing mode
func (s *Store) Create(ctx context.Context, pm *pmode.PMode) error {
	doc, err := toDocument(pm, s.now())
	if err != nil {
		return err
	}

	_, err = s.pmodes.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", pmode.ErrExists, pm.ID)
	}
	if err != nil {
		return fmt.Errorf("inserting pmode %s: %w", pm.ID, err)
	}
	return nil
}

// Update replaces an existing processing mode
func (s *Store) Update(ctx context.Context, pm *pmode.PMode) error {
	doc, err := toDocument(pm, s.now())
	if err != nil {
		return err
	}

	res, err := s.pmodes.ReplaceOne(ctx, idFilter(pm.ID), doc)
	if err != nil {
		return fmt.Errorf("replacing pmode %s: %w", pm.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", pmode.ErrNotFound, pm.ID)
	}
	return nil
}

// CreateOrUpdate upserts a processing mode
func (s *Store) CreateOrUpdate(ctx context.Context, pm *pmode.PMode) error {
	doc, err := toDocument(pm, s.now())
	if err != nil {
		return err
	}

	_, err = s.pmodes.ReplaceOne(ctx, idFilter(pm.ID), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting pmode %s: %w", pm.ID, err)
	}
	return nil
}

// Delete removes a processing mode
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.pmodes.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return fmt.Errorf("deleting pmode %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", pmode.ErrNotFound, id)
	}
	return nil
}

// Get retrieves a processing mode by ID
func (s *Store) Get(ctx context.Context, id string) (*pmode.PMode, error) {
	return s.findOne(ctx, idFilter(id), nil, id)
}

// IDs lists the stored IDs in ascending order
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.pmodes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing pmodes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("listing pmodes: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Find returns the first P-Mode, by ID, whose leg 1 carries the service
// and action
func (s *Store) Find(ctx context.Context, service, action string) (*pmode.PMode, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.findOne(ctx, serviceActionFilter(service, action), opts,
		fmt.Sprintf("service %q action %q", service, action))
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions, what string) (*pmode.PMode, error) {
	var doc pmodeDocument
	var err error
	if opts != nil {
		err = s.pmodes.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = s.pmodes.FindOne(ctx, filter).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", pmode.ErrNotFound, what)
	}
	if err != nil {
		return nil, fmt.Errorf("loading pmode: %w", err)
	}
	return fromDocument(&doc)
}

func idFilter(id string) bson.M {
	return bson.M{"_id": id}
}

func serviceActionFilter(service, action string) bson.M {
	return bson.M{"service": service, "action": action}
}

func toDocument(pm *pmode.PMode, now time.Time) (*pmodeDocument, error) {
	if pm == nil || pm.ID == "" {
		return nil, pmode.ErrInvalidID
	}

	var buf bytes.Buffer
	if err := pmode.Encode(&buf, pm); err != nil {
		return nil, err
	}

	doc := &pmodeDocument{
		ID:        pm.ID,
		Agreement: pm.Agreement,
		Document:  buf.String(),
		UpdatedAt: now.UTC(),
	}
	if pm.Leg1 != nil && pm.Leg1.BusinessInfo != nil {
		doc.Service = pm.Leg1.BusinessInfo.Service
		doc.Action = pm.Leg1.BusinessInfo.Action
	}
	return doc, nil
}

func fromDocument(doc *pmodeDocument) (*pmode.PMode, error) {
	pmodes, err := pmode.Unmarshal([]byte(doc.Document))
	if err != nil {
		return nil, fmt.Errorf("decoding stored pmode %s: %w", doc.ID, err)
	}
	if len(pmodes) != 1 {
		return nil, fmt.Errorf("stored pmode %s holds %d documents", doc.ID, len(pmodes))
	}
	if pmodes[0].ID != doc.ID {
		return nil, fmt.Errorf("stored pmode %s carries ID %q", doc.ID, pmodes[0].ID)
	}
	return pmodes[0], nil
}
