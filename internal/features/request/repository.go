package request

import (
	"context"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RequestRepository interface {
	Create(ctx context.Context, req *Request) error
	FindByID(ctx context.Context, id string) (*Request, error)
	UpdateWithRevision(ctx context.Context, req *Request) error
	FindDueForEscalation(ctx context.Context, now time.Time, limit int64) ([]Request, error)
	CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error)
	ListPendingForApprover(ctx context.Context, userID string, page, limit int64) ([]Request, int64, error)
	List(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Request, int64, error)
}

type MongoRequestRepository struct {
	collection *mongo.Collection
}

func NewRequestRepository(db *database.MongodbDB) RequestRepository {
	return &MongoRequestRepository{
		collection: db.DB.Collection("workflow_requests"),
	}
}

func (r *MongoRequestRepository) Create(ctx context.Context, req *Request) error {
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, req)
	return err
}

func (r *MongoRequestRepository) FindByID(ctx context.Context, id string) (*Request, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrNotFound
	}

	var req Request
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateWithRevision persists the request only if nobody else advanced it
// since it was read. The filter matches the revision the caller loaded; a
// miss means a concurrent writer won and the caller gets ErrStaleState.
func (r *MongoRequestRepository) UpdateWithRevision(ctx context.Context, req *Request) error {
	loaded := req.Revision
	req.Revision = loaded + 1

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": req.ID, "revision": loaded},
		bson.M{"$set": bson.M{
			"status":              req.Status,
			"blocked":             req.Blocked,
			"blocked_reason":      req.BlockedReason,
			"current_step_id":     req.CurrentStepID,
			"current_step_order":  req.CurrentStepOrder,
			"step_approvers":      req.StepApprovers,
			"step_opened_at":      req.StepOpenedAt,
			"step_deadline":       req.StepDeadline,
			"escalation_notified": req.EscalationNotified,
			"revision":            req.Revision,
			"updated_at":          req.UpdatedAt,
			"resolved_at":         req.ResolvedAt,
		}},
	)
	if err != nil {
		req.Revision = loaded
		return err
	}
	if res.MatchedCount == 0 {
		req.Revision = loaded
		return errs.ErrStaleState
	}
	return nil
}

func (r *MongoRequestRepository) FindDueForEscalation(ctx context.Context, now time.Time, limit int64) ([]Request, error) {
	filter := bson.M{
		"status":              RequestStatusPending,
		"blocked":             false,
		"escalation_notified": false,
		"step_deadline":       bson.M{"$ne": nil, "$lte": now},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "step_deadline", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var due []Request
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *MongoRequestRepository) CountByWorkflow(ctx context.Context, workflowID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"workflow_id": workflowID})
}

func (r *MongoRequestRepository) ListPendingForApprover(ctx context.Context, userID string, page, limit int64) ([]Request, int64, error) {
	filter := bson.M{
		"status":         RequestStatusPending,
		"blocked":        false,
		"step_approvers": userID,
	}
	return r.find(ctx, filter, page, limit)
}

func (r *MongoRequestRepository) List(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Request, int64, error) {
	filter := bson.M{}
	for k, v := range filters {
		filter[k] = v
	}
	return r.find(ctx, filter, page, limit)
}

func (r *MongoRequestRepository) find(ctx context.Context, filter bson.M, page, limit int64) ([]Request, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var requests []Request
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

type ActionRepository interface {
	Append(ctx context.Context, action *Action) error
	ListByStep(ctx context.Context, requestID primitive.ObjectID, stepID string) ([]Action, error)
	ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]Action, error)
}

type MongoActionRepository struct {
	collection *mongo.Collection
}

func NewActionRepository(db *database.MongodbDB) ActionRepository {
	return &MongoActionRepository{
		collection: db.DB.Collection("workflow_actions"),
	}
}

// Append inserts one action record. There is no update or delete path on
// this collection.
func (r *MongoActionRepository) Append(ctx context.Context, action *Action) error {
	if action.ID.IsZero() {
		action.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, action)
	return err
}

func (r *MongoActionRepository) ListByStep(ctx context.Context, requestID primitive.ObjectID, stepID string) ([]Action, error) {
	return r.list(ctx, bson.M{"request_id": requestID, "step_id": stepID})
}

func (r *MongoActionRepository) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]Action, error) {
	return r.list(ctx, bson.M{"request_id": requestID})
}

func (r *MongoActionRepository) list(ctx context.Context, filter bson.M) ([]Action, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var actions []Action
	if err := cursor.All(ctx, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
