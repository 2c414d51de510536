package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eventsCollection := db.Collection("events")
	guidanceCollection := db.Collection("guidance")

	eventIndexes := []mongo.IndexModel{
		// Per-user event history in time order
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().
				SetName("user_events_time").
				SetUnique(false),
		},
		// Time-windowed analytics reads
		{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetName("events_time"),
		},
		// Per-kind tallies
		{
			Keys: bson.D{
				{Key: "kind", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().
				SetName("events_kind_time"),
		},
	}

	guidanceIndexes := []mongo.IndexModel{
		// One guidance record per (user, template) attempt
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "template_id", Value: 1},
			},
			Options: options.Index().
				SetName("user_template_guidance").
				SetUnique(true),
		},
		// Active-guidance lookup, newest first
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "completed_at", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().
				SetName("user_active_guidance"),
		},
	}

	_, err := eventsCollection.Indexes().CreateMany(ctx, eventIndexes)
	if err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}

	_, err = guidanceCollection.Indexes().CreateMany(ctx, guidanceIndexes)
	if err != nil {
		return fmt.Errorf("failed to create guidance indexes: %w", err)
	}

	log.Println("Successfully created all indexes")
	return nil
}
