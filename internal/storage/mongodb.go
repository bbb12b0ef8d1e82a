package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// MongoDB implements Storage using one sessions collection and one entry
// collection per entity kind
type MongoDB struct {
	client   *mongo.Client
	db       *mongo.Database
	sessions *mongo.Collection
	entries  map[types.EntityKind]*mongo.Collection
}

// sessionDoc is the MongoDB document structure
type sessionDoc struct {
	UserID       string            `bson:"user_id"`
	SessionID    string            `bson:"session_id"`
	State        string            `bson:"state"`
	Version      int64             `bson:"version"`
	Preferences  types.Preferences `bson:"preferences"`
	Messages     []types.Message   `bson:"messages"`
	MessageCount int               `bson:"message_count"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

func (d sessionDoc) session() *types.Session {
	return &types.Session{
		ID:          d.SessionID,
		UserID:      d.UserID,
		State:       types.SessionState(d.State),
		Version:     d.Version,
		Preferences: d.Preferences,
		Messages:    d.Messages,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// NewMongoDB creates a new MongoDB storage
func NewMongoDB(ctx context.Context, uri, database string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	m := &MongoDB{
		client:   client,
		db:       db,
		sessions: db.Collection("sessions"),
		entries: map[types.EntityKind]*mongo.Collection{
			types.KindJob:       db.Collection("job_entries"),
			types.KindCandidate: db.Collection("candidate_entries"),
		},
	}

	if err := m.initIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return m, nil
}

func (m *MongoDB) initIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
	}

	_, err := m.sessions.Indexes().CreateMany(ctx, indexes)
	return err
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func sessionFilter(userID, id string) bson.D {
	return bson.D{{Key: "user_id", Value: userID}, {Key: "session_id", Value: id}}
}

func (m *MongoDB) GetSession(ctx context.Context, userID, id string) (*types.Session, error) {
	var doc sessionDoc
	err := m.sessions.FindOne(ctx, sessionFilter(userID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(userID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return doc.session(), nil
}

func (m *MongoDB) ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "session_id", Value: 1}}).
		SetProjection(bson.D{{Key: "messages", Value: 0}})

	cursor, err := m.sessions.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []types.SessionSummary{}
	for cursor.Next(ctx) {
		var doc sessionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		sum := doc.session().Summary()
		sum.MessageCount = doc.MessageCount
		out = append(out, sum)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	types.SortSummaries(out)
	return out, nil
}

// SaveSession replaces the document only when the stored version is not newer.
// A newer stored version makes the upsert collide with the unique index.
func (m *MongoDB) SaveSession(ctx context.Context, sess *types.Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}

	doc := sessionDoc{
		UserID:       sess.UserID,
		SessionID:    sess.ID,
		State:        string(sess.State),
		Version:      sess.Version,
		Preferences:  sess.Preferences,
		Messages:     nonNilMessages(sess.Messages),
		MessageCount: len(sess.Messages),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	}

	filter := append(sessionFilter(sess.UserID, sess.ID),
		bson.E{Key: "version", Value: bson.D{{Key: "$lte", Value: sess.Version}}})

	_, err := m.sessions.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: session %s has a newer version than %d", types.ErrConflict, sess.ID, sess.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (m *MongoDB) DeleteSession(ctx context.Context, userID, id string) error {
	_, err := m.sessions.DeleteOne(ctx, sessionFilter(userID, id))
	return err
}

func (m *MongoDB) collection(kind types.EntityKind) (*mongo.Collection, error) {
	c, ok := m.entries[kind]
	if !ok {
		return nil, kind.Validate()
	}
	return c, nil
}

func (m *MongoDB) UpsertEntry(ctx context.Context, e types.IndexEntry) error {
	c, err := m.collection(e.Kind)
	if err != nil {
		return err
	}
	_, err = c.ReplaceOne(ctx, bson.D{{Key: "_id", Value: e.ID}}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

func (m *MongoDB) DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error {
	c, err := m.collection(kind)
	if err != nil {
		return err
	}
	_, err = c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

func (m *MongoDB) ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error) {
	c, err := m.collection(kind)
	if err != nil {
		return nil, err
	}
	cursor, err := c.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []types.IndexEntry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Kind = kind
		out[i].UpdatedAt = out[i].UpdatedAt.UTC()
	}
	return out, nil
}
