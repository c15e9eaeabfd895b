package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

func (m *MongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	var cart Cart
	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

// AddItem increments an existing line, otherwise pushes a new one,
// creating the cart if needed. A concurrent insert of the same cart loses
// the unique index race and retries as an increment.
func (m *MongoCartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now()

		inc, err := m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": productID},
			bson.M{
				"$inc": bson.M{"items.$[elem].quantity": quantity},
				"$set": bson.M{"updated_at": now},
			},
			options.Update().SetArrayFilters(options.ArrayFilters{
				Filters: []interface{}{bson.M{"elem.product_id": productID}},
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to increment item: %w", err)
		}
		if inc.MatchedCount > 0 {
			return nil
		}

		_, err = m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push":        bson.M{"items": CartLine{ProductID: productID, Quantity: quantity, AddedAt: now}},
				"$set":         bson.M{"updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			},
			options.Update().SetUpsert(true),
		)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to add item: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to add item: concurrent updates for user %d", userID)
}

func (m *MongoCartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	result, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.product_id": productID},
		bson.M{"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"elem.product_id": productID}},
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *MongoCartRepository) RemoveItem(ctx context.Context, userID, productID int64) error {
	result, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.product_id": productID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"product_id": productID}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *MongoCartRepository) DeleteCart(ctx context.Context, userID int64) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
