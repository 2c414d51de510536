package repository

import (
	"context"
	"errors"
	"fmt"
	"main/model"
	"main/utils"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GuidanceRepo stores per-user guidance state. Records are retained
// after completion for analytics; nothing here deletes them.
type GuidanceRepo struct {
	MongoCollection *mongo.Collection
	Timeout         time.Duration
}

func GetGuidanceRepo(client *mongo.Client) *GuidanceRepo {
	return &GuidanceRepo{
		MongoCollection: client.Database(os.Getenv("MONGO_DB")).Collection("guidance"),
		Timeout:         utils.GetEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
	}
}

// ReadGuidanceState returns the guidance record for a (user, template)
// pair, or nil when the user never started that template.
func (r *GuidanceRepo) ReadGuidanceState(ctx context.Context, userID, templateID string) (*model.GuidanceState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var state model.GuidanceState
	err := r.MongoCollection.FindOne(ctx,
		bson.M{"user_id": userID, "template_id": templateID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read guidance state: %w", err)
	}
	return &state, nil
}

// ReadActiveGuidance returns the newest in-progress guidance for a user,
// or nil when none exists. The newest record is the user's active
// guidance; older unfinished records stay behind for analytics.
func (r *GuidanceRepo) ReadActiveGuidance(ctx context.Context, userID string) (*model.GuidanceState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var state model.GuidanceState
	err := r.MongoCollection.FindOne(ctx,
		bson.M{"user_id": userID, "completed_at": bson.M{"$exists": false}}, opts).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read active guidance: %w", err)
	}
	return &state, nil
}

// WriteGuidanceState upserts the full guidance record.
func (r *GuidanceRepo) WriteGuidanceState(ctx context.Context, state *model.GuidanceState) error {
	if state.UserID == "" || state.TemplateID == "" {
		return errors.New("user ID and template ID are required")
	}

	state.UpdatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	filter := bson.M{"_id": state.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.MongoCollection.ReplaceOne(ctx, filter, state, opts); err != nil {
		return fmt.Errorf("failed to write guidance state: %w", err)
	}
	return nil
}

// ReadUserGuidances returns every guidance record for a user, newest
// first.
func (r *GuidanceRepo) ReadUserGuidances(ctx context.Context, userID string) ([]*model.GuidanceState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.MongoCollection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read guidances: %w", err)
	}
	defer cursor.Close(ctx)

	var states []*model.GuidanceState
	if err = cursor.All(ctx, &states); err != nil {
		return nil, fmt.Errorf("failed to decode guidances: %w", err)
	}
	return states, nil
}
