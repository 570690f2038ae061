package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

const ordersCollection = "orders"

// MongoOrderRepository keeps orders in the document layout the kiosk
// platform used originally: one document per order with nested items.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection(ordersCollection)}
}

func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrderNumber
		}
		return err
	}

	return nil
}

func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	normalize(&order)
	return &order, nil
}

func (r *MongoOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": order.ID, "version": order.Version},
		bson.M{
			"$set": bson.M{"status": order.Status, "updated_at": order.UpdatedAt},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	order.Version++
	return nil
}

func (r *MongoOrderRepository) ListByStore(ctx context.Context, storeID int64) ([]domain.Order, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"store_id": storeID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}

	for i := range orders {
		normalize(&orders[i])
	}

	return orders, nil
}

func (r *MongoOrderRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

// BSON datetimes decode in local time.
func normalize(order *domain.Order) {
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
}
