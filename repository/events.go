package repository

import (
	"context"
	"errors"
	"fmt"
	"main/middleware"
	"main/model"
	"main/utils"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventsRepo is the append-only onboarding event store. Records are
// inserted once and never updated or removed.
type EventsRepo struct {
	MongoCollection *mongo.Collection
	Timeout         time.Duration
}

func GetEventsRepo(client *mongo.Client) *EventsRepo {
	return &EventsRepo{
		MongoCollection: client.Database(os.Getenv("MONGO_DB")).Collection("events"),
		Timeout:         utils.GetEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
	}
}

// AppendEvent writes a single event record. The id and timestamp are
// filled in when the caller left them empty.
func (r *EventsRepo) AppendEvent(ctx context.Context, event *model.EventRecord) error {
	if event.UserID == "" {
		return errors.New("user ID is required")
	}
	if event.Kind == "" {
		return errors.New("event kind is required")
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	timer := middleware.TrackDBOperation("insert", "events")
	defer timer.ObserveDuration()

	if _, err := r.MongoCollection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	middleware.TrackOnboardingEvent(string(event.Kind))
	return nil
}

// ReadEvents returns all records matching the filter in timestamp order.
func (r *EventsRepo) ReadEvents(ctx context.Context, filter model.EventFilter) ([]*model.EventRecord, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}

	timeQuery := bson.M{}
	if !filter.From.IsZero() {
		timeQuery["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		timeQuery["$lte"] = filter.To
	}
	if len(timeQuery) > 0 {
		query["timestamp"] = timeQuery
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.MongoCollection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.EventRecord
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// CountEvents counts records matching the filter.
func (r *EventsRepo) CountEvents(ctx context.Context, filter model.EventFilter) (int, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	count, err := r.MongoCollection.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return int(count), nil
}
