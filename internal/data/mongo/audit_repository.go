// Package mongo keeps the queryable archive of published audit events.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit event collection in MongoDB
	AuditCollectionName = "audit_events"
)

// eventDocument is the stored shape; the payload is kept as a sub-document so
// it can be queried
type eventDocument struct {
	ID         string    `bson:"_id"`
	Type       string    `bson:"type"`
	TenantID   string    `bson:"tenant_id,omitempty"`
	PropertyID string    `bson:"property_id,omitempty"`
	Payload    bson.Raw  `bson:"payload"`
	CreatedAt  time.Time `bson:"created_at"`
}

// AuditRepository implements audit.ArchiveRepository for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit archive
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the per-tenant lookup index
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(AuditCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Save archives an event. Saving the same event twice is a no-op, so a
// republished outbox message does not fail.
func (r *AuditRepository) Save(ctx context.Context, event *audit.Event) error {
	doc, err := toDocument(event)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(AuditCollectionName).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Audit event already archived", "event_id", event.ID.String())
			return nil
		}
		r.logger.Error("Failed to archive audit event",
			"event_id", event.ID.String(),
			"error", err)
		return fmt.Errorf("failed to archive audit event: %w", err)
	}

	return nil
}

// ListByTenant returns a tenant's events, newest first
func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*audit.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(AuditCollectionName).Find(ctx, bson.M{"tenant_id": tenantID.String()}, opts)
	if err != nil {
		r.logger.Error("Failed to list audit events",
			"tenant_id", tenantID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode audit events",
			"tenant_id", tenantID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}

	events := make([]*audit.Event, 0, len(docs))
	for _, doc := range docs {
		event, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode audit event %s: %w", doc.ID, err)
		}
		events = append(events, event)
	}

	return events, nil
}

func toDocument(event *audit.Event) (*eventDocument, error) {
	var payload bson.Raw
	if err := bson.UnmarshalExtJSON(event.Payload, false, &payload); err != nil {
		return nil, fmt.Errorf("failed to convert audit payload: %w", err)
	}

	doc := &eventDocument{
		ID:        event.ID.String(),
		Type:      string(event.Type),
		Payload:   payload,
		CreatedAt: event.CreatedAt,
	}
	if event.TenantID != nil {
		doc.TenantID = event.TenantID.String()
	}
	if event.PropertyID != nil {
		doc.PropertyID = event.PropertyID.String()
	}
	return doc, nil
}

func fromDocument(doc eventDocument) (*audit.Event, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	payload, err := bson.MarshalExtJSON(doc.Payload, false, false)
	if err != nil {
		return nil, err
	}

	event := &audit.Event{
		ID:        id,
		Type:      audit.EventType(doc.Type),
		Payload:   payload,
		CreatedAt: doc.CreatedAt.UTC(),
	}
	if event.TenantID, err = optionalUUID(doc.TenantID); err != nil {
		return nil, err
	}
	if event.PropertyID, err = optionalUUID(doc.PropertyID); err != nil {
		return nil, err
	}
	return event, nil
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
