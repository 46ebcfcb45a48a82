package notification

import (
	"context"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, page, limit int64) ([]Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type NotificationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewNotificationRepository(mongodb *database.MongodbDB) NotificationRepository {
	return &NotificationRepositoryImpl{
		Collection: mongodb.DB.Collection("notifications"),
	}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, n)
	return err
}

func (r *NotificationRepositoryImpl) ListByUser(ctx context.Context, userID string, page, limit int64) ([]Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	filter := bson.M{"user_id": userID}

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var notifications []Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
}

func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, id string, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	return err
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID string) error {
	now := time.Now()
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	return err
}
