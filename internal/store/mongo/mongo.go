package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/ordercast-server/internal/store"
)

const (
	usersCollection    = "users"
	ordersCollection   = "orders"
	countersCollection = "counters"

	userSequence = "users"
)

// MongoStore implements store.Store on MongoDB.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	users    *mongo.Collection
	orders   *mongo.Collection
	counters *mongo.Collection
	timeout  time.Duration
}

type userDoc struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	StoreIDs     []string  `bson:"store_ids"`
	SuperAdmin   bool      `bson:"super_admin"`
	CreatedAt    time.Time `bson:"created_at"`
}

type orderDoc struct {
	ID           string            `bson:"_id"`
	StoreID      string            `bson:"store_id"`
	Number       int64             `bson:"number"`
	CustomerName string            `bson:"customer_name"`
	Items        []store.OrderItem `bson:"items"`
	TotalCents   int64             `bson:"total_cents"`
	Status       string            `bson:"status"`
	CreatedAt    time.Time         `bson:"created_at"`
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// New connects to uri, verifies the connection and ensures indexes.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetAppName("ordercast").
		SetConnectTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		db:       db,
		users:    db.Collection(usersCollection),
		orders:   db.Collection(ordersCollection),
		counters: db.Collection(countersCollection),
		timeout:  5 * time.Second,
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_username_unique"),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	if _, err := s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "store_id", Value: 1}, {Key: "number", Value: -1}},
		Options: options.Index().SetUnique(true).SetName("orders_store_number_unique"),
	}); err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextSequence atomically increments and returns the named counter.
func (s *MongoStore) nextSequence(ctx context.Context, name string) (int64, error) {
	var counter counterDoc
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return counter.Value, nil
}

// ==== UserStore implementation ====

// CreateUser creates an admin and records the stores they may watch.
func (s *MongoStore) CreateUser(ctx context.Context, username, passwordHash string, storeIDs []string, superAdmin bool) (*store.User, error) {
	id, err := s.nextSequence(ctx, userSequence)
	if err != nil {
		return nil, err
	}
	doc := userDoc{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		StoreIDs:     dedupe(storeIDs),
		SuperAdmin:   superAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toUser(), nil
}

// GetUserByID retrieves a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

// GetUserByUsername retrieves a user by username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*store.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toUser(), nil
}

// ==== OrderStore implementation ====

// CreateOrder saves the order with the next number from the store's counter.
func (s *MongoStore) CreateOrder(ctx context.Context, order *store.Order) (*store.Order, error) {
	number, err := s.nextSequence(ctx, "orders:"+order.StoreID)
	if err != nil {
		return nil, err
	}

	saved := *order
	saved.Number = number
	if saved.Status == "" {
		saved.Status = store.OrderStatusPending
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	saved.CreatedAt = saved.CreatedAt.UTC()

	if _, err := s.orders.InsertOne(ctx, fromOrder(&saved)); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &saved, nil
}

// GetOrder retrieves an order by store and number.
func (s *MongoStore) GetOrder(ctx context.Context, storeID string, number int64) (*store.Order, error) {
	var doc orderDoc
	err := s.orders.FindOne(ctx, bson.M{"store_id": storeID, "number": number}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("order: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return doc.toOrder(), nil
}

// ListOrders returns the newest orders of a store first.
func (s *MongoStore) ListOrders(ctx context.Context, storeID string, limit int) ([]store.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "number", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.orders.Find(ctx, bson.M{"store_id": storeID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]store.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		orders = append(orders, *doc.toOrder())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (d userDoc) toUser() *store.User {
	return &store.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		StoreIDs:     d.StoreIDs,
		SuperAdmin:   d.SuperAdmin,
		CreatedAt:    d.CreatedAt,
	}
}

func fromOrder(o *store.Order) orderDoc {
	return orderDoc{
		ID:           o.ID,
		StoreID:      o.StoreID,
		Number:       o.Number,
		CustomerName: o.CustomerName,
		Items:        o.Items,
		TotalCents:   o.TotalCents,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
	}
}

func (d orderDoc) toOrder() *store.Order {
	return &store.Order{
		ID:           d.ID,
		StoreID:      d.StoreID,
		Number:       d.Number,
		CustomerName: d.CustomerName,
		Items:        d.Items,
		TotalCents:   d.TotalCents,
		Status:       store.OrderStatus(d.Status),
		CreatedAt:    d.CreatedAt,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
