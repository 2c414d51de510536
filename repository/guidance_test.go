package repository

import (
	"context"
	"main/model"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGuidanceRepoOperations(t *testing.T) {
	client := newMongoClient()
	defer client.Disconnect(context.Background())

	coll := client.Database("craftguide_test").Collection("testGuidance")
	defer coll.Drop(context.Background())

	guidanceRepo := GuidanceRepo{MongoCollection: coll, Timeout: 5 * time.Second}

	userID := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("ReadMissingReturnsNil", func(t *testing.T) {
		state, err := guidanceRepo.ReadGuidanceState(context.Background(), userID, "basic-woodworking")
		if err != nil {
			t.Fatal("read guidance failed", err)
		}
		if state != nil {
			t.Error("expected nil for unknown guidance")
		}
	})

	t.Run("WriteAndRead", func(t *testing.T) {
		state := &model.GuidanceState{
			ID:               uuid.New().String(),
			UserID:           userID,
			TemplateID:       "basic-woodworking",
			CurrentStepIndex: 1,
			CompletedSteps:   []string{"measure-and-mark"},
			CreatedAt:        now,
		}
		if err := guidanceRepo.WriteGuidanceState(context.Background(), state); err != nil {
			t.Fatal("write guidance failed", err)
		}

		got, err := guidanceRepo.ReadGuidanceState(context.Background(), userID, "basic-woodworking")
		if err != nil {
			t.Fatal("read guidance failed", err)
		}
		if got == nil || got.CurrentStepIndex != 1 || len(got.CompletedSteps) != 1 {
			t.Errorf("unexpected state: %+v", got)
		}
	})

	t.Run("ActiveGuidancePrefersNewest", func(t *testing.T) {
		second := &model.GuidanceState{
			ID:               uuid.New().String(),
			UserID:           userID,
			TemplateID:       "hand-sewn-tote",
			CurrentStepIndex: 0,
			CompletedSteps:   []string{},
			CreatedAt:        now.Add(time.Minute),
		}
		if err := guidanceRepo.WriteGuidanceState(context.Background(), second); err != nil {
			t.Fatal("write guidance failed", err)
		}

		active, err := guidanceRepo.ReadActiveGuidance(context.Background(), userID)
		if err != nil {
			t.Fatal("read active guidance failed", err)
		}
		if active == nil || active.TemplateID != "hand-sewn-tote" {
			t.Errorf("expected the newest guidance to be active, got %+v", active)
		}
	})

	t.Run("CompletedGuidanceIsNotActive", func(t *testing.T) {
		active, err := guidanceRepo.ReadActiveGuidance(context.Background(), userID)
		if err != nil {
			t.Fatal("read active guidance failed", err)
		}
		completedAt := now.Add(2 * time.Hour)
		active.CompletedAt = &completedAt
		if err := guidanceRepo.WriteGuidanceState(context.Background(), active); err != nil {
			t.Fatal("write guidance failed", err)
		}

		next, err := guidanceRepo.ReadActiveGuidance(context.Background(), userID)
		if err != nil {
			t.Fatal("read active guidance failed", err)
		}
		if next == nil || next.TemplateID != "basic-woodworking" {
			t.Errorf("expected the older unfinished guidance, got %+v", next)
		}
	})

	t.Run("ReadUserGuidancesNewestFirst", func(t *testing.T) {
		states, err := guidanceRepo.ReadUserGuidances(context.Background(), userID)
		if err != nil {
			t.Fatal("read guidances failed", err)
		}
		if len(states) != 2 {
			t.Fatalf("expected 2 guidances, got %d", len(states))
		}
		if states[0].CreatedAt.Before(states[1].CreatedAt) {
			t.Error("guidances not sorted newest first")
		}
	})
}

func TestTemplatesRepoSeedAndRead(t *testing.T) {
	client := newMongoClient()
	defer client.Disconnect(context.Background())

	coll := client.Database("craftguide_test").Collection("testTemplates")
	defer coll.Drop(context.Background())

	templatesRepo := TemplatesRepo{MongoCollection: coll, Timeout: 5 * time.Second}

	t.Run("SeedEmptyCatalog", func(t *testing.T) {
		if err := templatesRepo.SeedTemplates(context.Background()); err != nil {
			t.Fatal("seed failed", err)
		}
		templates, err := templatesRepo.ListTemplates(context.Background())
		if err != nil {
			t.Fatal("list templates failed", err)
		}
		if len(templates) != len(StarterTemplates) {
			t.Errorf("expected %d templates, got %d", len(StarterTemplates), len(templates))
		}
	})

	t.Run("SeedIsIdempotent", func(t *testing.T) {
		if err := templatesRepo.SeedTemplates(context.Background()); err != nil {
			t.Fatal("second seed failed", err)
		}
		templates, _ := templatesRepo.ListTemplates(context.Background())
		if len(templates) != len(StarterTemplates) {
			t.Errorf("re-seeding duplicated templates: %d", len(templates))
		}
	})

	t.Run("GetTemplate", func(t *testing.T) {
		template, err := templatesRepo.GetTemplate(context.Background(), "basic-woodworking")
		if err != nil {
			t.Fatal("get template failed", err)
		}
		if template == nil || len(template.Steps) != 5 {
			t.Errorf("unexpected template: %+v", template)
		}
	})

	t.Run("GetUnknownTemplate", func(t *testing.T) {
		template, err := templatesRepo.GetTemplate(context.Background(), "no-such-template")
		if err != nil {
			t.Fatal("get template failed", err)
		}
		if template != nil {
			t.Error("expected nil for unknown template")
		}
	})
}
