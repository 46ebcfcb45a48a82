package workflow

import (
	"context"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WorkflowRepository interface {
	Create(ctx context.Context, def *WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*WorkflowDefinition, error)
	GetActiveByEntityType(ctx context.Context, entityType string) (*WorkflowDefinition, error)
	GetByEntityTypeAndVersion(ctx context.Context, entityType string, version int) (*WorkflowDefinition, error)
	LatestVersion(ctx context.Context, entityType string) (int, error)
	List(ctx context.Context) ([]WorkflowDefinition, error)
	ListVersions(ctx context.Context, entityType string) ([]WorkflowDefinition, error)
	Update(ctx context.Context, def *WorkflowDefinition) error
	Activate(ctx context.Context, entityType string, id primitive.ObjectID) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type WorkflowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewWorkflowRepository(mongodb *database.MongodbDB) WorkflowRepository {
	return &WorkflowRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_definitions"),
	}
}

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, def *WorkflowDefinition) error {
	_, err := r.Collection.InsertOne(ctx, def)
	return err
}

func (r *WorkflowRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowDefinition, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var def WorkflowDefinition
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&def)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (r *WorkflowRepositoryImpl) GetActiveByEntityType(ctx context.Context, entityType string) (*WorkflowDefinition, error) {
	var def WorkflowDefinition
	err := r.Collection.FindOne(ctx, bson.M{"entity_type": entityType, "is_active": true}).Decode(&def)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // no active workflow for this entity type
		}
		return nil, err
	}
	return &def, nil
}

func (r *WorkflowRepositoryImpl) GetByEntityTypeAndVersion(ctx context.Context, entityType string, version int) (*WorkflowDefinition, error) {
	var def WorkflowDefinition
	err := r.Collection.FindOne(ctx, bson.M{"entity_type": entityType, "version": version}).Decode(&def)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (r *WorkflowRepositoryImpl) LatestVersion(ctx context.Context, entityType string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var def WorkflowDefinition
	err := r.Collection.FindOne(ctx, bson.M{"entity_type": entityType}, opts).Decode(&def)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return def.Version, nil
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context) ([]WorkflowDefinition, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "entity_type", Value: 1},
		{Key: "version", Value: -1},
	}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var defs []WorkflowDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *WorkflowRepositoryImpl) ListVersions(ctx context.Context, entityType string) ([]WorkflowDefinition, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"entity_type": entityType},
		options.Find().SetSort(bson.D{{Key: "version", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var defs []WorkflowDefinition
	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *WorkflowRepositoryImpl) Update(ctx context.Context, def *WorkflowDefinition) error {
	update := bson.M{
		"$set": bson.M{
			"name":       def.Name,
			"steps":      def.Steps,
			"updated_at": time.Now(),
		},
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": def.ID}, update)
	return err
}

// Activate flips the given version on and every sibling version of the same
// entity type off, enforcing the single-active-version invariant at the write
// boundary.
func (r *WorkflowRepositoryImpl) Activate(ctx context.Context, entityType string, id primitive.ObjectID) error {
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"entity_type": entityType, "_id": bson.M{"$ne": id}},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": true, "updated_at": time.Now()}})
	return err
}

func (r *WorkflowRepositoryImpl) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}})
	return err
}

func (r *WorkflowRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
