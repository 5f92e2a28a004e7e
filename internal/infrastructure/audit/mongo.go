package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/notification"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	serviceName       = "restaurant-ordering"
	defaultCollection = "order_audit"
	connectTimeout    = 10 * time.Second
)

type Options struct {
	URI        string
	Database   string
	Collection string
}

// Entry is one audit document.
type Entry struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entity_id"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// MongoRecorder keeps an append-only trail of order notifications.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRecorder(opts Options) (*MongoRecorder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("audit: connect mongo: %w", err)
	}
	coll := opts.Collection
	if coll == "" {
		coll = defaultCollection
	}
	return &MongoRecorder{
		client:     client,
		collection: client.Database(opts.Database).Collection(coll),
		now:        time.Now,
	}, nil
}

func (m *MongoRecorder) Name() string { return "mongo_audit" }

func (m *MongoRecorder) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRecorder) Notify(ctx context.Context, msg notification.Message) error {
	entry := EntryFor(msg, m.now().UTC())
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// History returns the newest entries recorded for an order.
func (m *MongoRecorder) History(ctx context.Context, orderID string, limit int64) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := m.collection.Find(ctx, bson.M{"entity_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("audit: find: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*Entry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("audit: decode: %w", err)
	}
	return out, nil
}

func (m *MongoRecorder) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EntryFor maps a notification to the document stored for it.
func EntryFor(msg notification.Message, at time.Time) *Entry {
	data := bson.M{
		"user_id": msg.Order.UserID,
		"total":   msg.Order.Total.String(),
		"status":  string(msg.Order.Status),
	}
	if msg.From != "" {
		data["from"] = string(msg.From)
	}
	if len(msg.Items) > 0 {
		items := make(bson.A, 0, len(msg.Items))
		for _, it := range msg.Items {
			items = append(items, bson.M{
				"dish_id":   it.DishID,
				"dish_name": it.DishName,
				"quantity":  it.Quantity,
			})
		}
		data["items"] = items
	}
	return &Entry{
		Service:   serviceName,
		Action:    msg.Event,
		EntityID:  msg.Order.ID,
		Data:      data,
		CreatedAt: at,
	}
}
