package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeInfo       NotificationType = "info"
	NotificationTypeApproval   NotificationType = "approval"   // a step is waiting on the recipient
	NotificationTypeEscalation NotificationType = "escalation" // a step exceeded its timeout
	NotificationTypeResolved   NotificationType = "resolved"   // a request reached a terminal state
)

type Notification struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  string             `bson:"user_id" json:"user_id"`
	Title   string             `bson:"title" json:"title"`
	Message string             `bson:"message" json:"message"`
	Type    NotificationType   `bson:"type" json:"type"`

	// Workflow context, set when the notification came from the engine.
	RequestID    string `bson:"request_id,omitempty" json:"request_id,omitempty"`
	EntityType   string `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityNumber string `bson:"entity_number,omitempty" json:"entity_number,omitempty"`

	IsRead    bool       `bson:"is_read" json:"is_read"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	ReadAt    *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
