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

// TemplatesRepo is the read side of the template catalog. The catalog
// content is authored externally; this repo only reads it, plus a seed
// helper for empty databases.
type TemplatesRepo struct {
	MongoCollection *mongo.Collection
	Timeout         time.Duration
}

func GetTemplatesRepo(client *mongo.Client) *TemplatesRepo {
	return &TemplatesRepo{
		MongoCollection: client.Database(os.Getenv("MONGO_DB")).Collection("templates"),
		Timeout:         utils.GetEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
	}
}

// GetTemplate returns the template with the given id, or nil when the id
// is unknown.
func (r *TemplatesRepo) GetTemplate(ctx context.Context, templateID string) (*model.ProjectTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var template model.ProjectTemplate
	err := r.MongoCollection.FindOne(ctx, bson.M{"_id": templateID}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return &template, nil
}

// ListTemplates returns the full catalog in name order. The listing
// order is stable, which keeps the derived canonical step order stable.
func (r *TemplatesRepo) ListTemplates(ctx context.Context) ([]*model.ProjectTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.MongoCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []*model.ProjectTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	return templates, nil
}

// SeedTemplates inserts the built-in starter catalog when the collection
// is empty. Production catalogs are loaded by the catalog pipeline, but
// a fresh install still needs something to recommend.
func (r *TemplatesRepo) SeedTemplates(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	count, err := r.MongoCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count templates: %w", err)
	}
	if count > 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(StarterTemplates))
	for _, t := range StarterTemplates {
		docs = append(docs, t)
	}
	if _, err := r.MongoCollection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed templates: %w", err)
	}
	return nil
}

// StarterTemplates is the built-in beginner catalog used to seed empty
// databases and as fixtures in tests.
var StarterTemplates = []*model.ProjectTemplate{
	{
		ID:               "basic-woodworking",
		Name:             "Basic Woodworking",
		Description:      "Build a small wooden serving tray from pre-cut boards.",
		CraftType:        "woodworking",
		Difficulty:       "beginner",
		EstimatedMinutes: 180,
		Materials:        []string{"pine board", "wood glue", "sandpaper 120/240", "finishing oil"},
		Tools:            []string{"hand saw", "clamps", "tape measure"},
		CompletionRate:   72.5,
		Steps: []model.ProjectStep{
			{
				ID:               "measure-and-mark",
				Title:            "Measure and mark the boards",
				Description:      "Transfer the cut list onto the boards.",
				EstimatedMinutes: 20,
				Instructions:     []string{"Check each board for warp", "Mark cut lines with a square"},
				Tips:             []string{"Measure twice, cut once"},
			},
			{
				ID:               "cut-to-length",
				Title:            "Cut the boards to length",
				Description:      "Cut along the marked lines.",
				EstimatedMinutes: 40,
				Instructions:     []string{"Support the offcut side", "Cut on the waste side of the line"},
				SafetyNotes:      []string{"Keep fingers clear of the cut line"},
			},
			{
				ID:               "sand-surfaces",
				Title:            "Sand all surfaces",
				Description:      "Work up through the grits.",
				EstimatedMinutes: 30,
				Instructions:     []string{"Start with 120 grit", "Finish with 240 grit"},
				CommonMistakes:   []string{"Skipping grits leaves scratches under the finish"},
			},
			{
				ID:               "glue-assembly",
				Title:            "Glue and clamp the assembly",
				Description:      "Join the sides to the base.",
				EstimatedMinutes: 50,
				Instructions:     []string{"Dry-fit before gluing", "Wipe squeeze-out while wet"},
				PhotoRequired:    true,
			},
			{
				ID:               "apply-finish",
				Title:            "Apply the finish",
				Description:      "Oil the tray and let it cure.",
				EstimatedMinutes: 40,
				Instructions:     []string{"Apply thin coats", "Let each coat cure overnight"},
				PhotoRequired:    true,
			},
		},
	},
	{
		ID:               "hand-sewn-tote",
		Name:             "Hand-Sewn Tote Bag",
		Description:      "Sew a sturdy canvas tote with reinforced handles.",
		CraftType:        "sewing",
		Difficulty:       "beginner",
		EstimatedMinutes: 150,
		Materials:        []string{"canvas fabric", "heavy-duty thread", "cotton webbing"},
		Tools:            []string{"needles", "fabric scissors", "pins", "iron"},
		CompletionRate:   81.0,
		Steps: []model.ProjectStep{
			{
				ID:               "cut-fabric",
				Title:            "Cut the fabric panels",
				Description:      "Cut the body and pocket panels to size.",
				EstimatedMinutes: 25,
				Instructions:     []string{"Press the fabric first", "Cut along the grain"},
			},
			{
				ID:               "sew-seams",
				Title:            "Sew the side seams",
				Description:      "Join the panels with a backstitch.",
				EstimatedMinutes: 60,
				Instructions:     []string{"Pin before sewing", "Backstitch at both ends"},
				Tips:             []string{"Shorter stitches hold better on canvas"},
			},
			{
				ID:               "attach-handles",
				Title:            "Attach the handles",
				Description:      "Box-stitch the webbing to the body.",
				EstimatedMinutes: 45,
				Instructions:     []string{"Mark handle positions symmetrically", "Box-stitch each end"},
				PhotoRequired:    true,
			},
			{
				ID:               "hem-opening",
				Title:            "Hem the opening",
				Description:      "Fold and hem the top edge.",
				EstimatedMinutes: 20,
				Instructions:     []string{"Double-fold the edge", "Press before stitching"},
			},
		},
	},
	{
		ID:               "beginner-leather-wallet",
		Name:             "Beginner Leather Wallet",
		Description:      "Cut and stitch a two-pocket card wallet.",
		CraftType:        "leatherwork",
		Difficulty:       "intermediate",
		EstimatedMinutes: 210,
		Materials:        []string{"veg-tan leather", "waxed thread", "edge beveler"},
		Tools:            []string{"stitching needles", "awl", "cutting mat", "ruler"},
		CompletionRate:   58.3,
		Steps: []model.ProjectStep{
			{
				ID:               "cut-leather",
				Title:            "Cut the leather pieces",
				Description:      "Cut the body and pocket pieces from the pattern.",
				EstimatedMinutes: 40,
				Instructions:     []string{"Trace the pattern with an awl", "Cut in single confident strokes"},
				SafetyNotes:      []string{"Always cut away from your hand"},
			},
			{
				ID:               "punch-holes",
				Title:            "Punch the stitching holes",
				Description:      "Mark and punch an even stitch line.",
				EstimatedMinutes: 50,
				Instructions:     []string{"Groove the stitch line first", "Keep the chisel vertical"},
				CommonMistakes:   []string{"Uneven spacing shows badly on the finished edge"},
			},
			{
				ID:               "saddle-stitch",
				Title:            "Saddle-stitch the pockets",
				Description:      "Stitch the pockets to the body.",
				EstimatedMinutes: 80,
				Instructions:     []string{"Use two needles", "Pull each stitch tight and even"},
				PhotoRequired:    true,
			},
			{
				ID:               "finish-edges",
				Title:            "Finish the edges",
				Description:      "Bevel, sand, and burnish the edges.",
				EstimatedMinutes: 40,
				Instructions:     []string{"Bevel both sides", "Burnish with water and canvas"},
			},
		},
	},
}
