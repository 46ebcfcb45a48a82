package role

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a named permission set. Users reference roles by name; the approval
// engine also resolves role-type approver specs against these names.
type Role struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`

	// Permissions maps resource -> action -> allowed, e.g.
	// "workflows" -> "create" -> true.
	Permissions map[string]map[string]bool `json:"permissions" bson:"permissions"`

	IsSystem  bool      `json:"is_system" bson:"is_system"` // seeded roles, not deletable
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Allows reports whether the role grants the action on the resource. The
// "admin" wildcard resource short-circuits every check.
func (r *Role) Allows(resource, action string) bool {
	if actions, ok := r.Permissions["*"]; ok {
		if actions["*"] || actions[action] {
			return true
		}
	}
	actions, ok := r.Permissions[resource]
	if !ok {
		return false
	}
	return actions["*"] || actions[action]
}
