package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"eventqa-service/internal/app"
	"eventqa-service/internal/config"
	"eventqa-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads demo data into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write demo users, an event, and its questions into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store, cleanup, err := newRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now().UTC()

	users := []domain.User{
		{ID: "admin-001", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, CreatedAt: now},
		{ID: "user-001", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser, CreatedAt: now},
		{ID: "user-002", Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser, CreatedAt: now},
	}

	event := domain.Event{
		ID:          "evt-demo",
		Title:       "Demo Tech Meetup",
		Description: "Warm-up trivia for the demo meetup",
		Status:      domain.EventPublished,
		CreatedBy:   "admin-001",
		CreatedAt:   now,
	}

	questions := []domain.Question{
		{
			ID:      "q-demo-1",
			EventID: event.ID,
			Text:    "Which HTTP status signals a duplicate submission?",
			Choices: []domain.Choice{
				{ID: "c1", Text: "404"},
				{ID: "c2", Text: "409"},
				{ID: "c3", Text: "429"},
				{ID: "c4", Text: "500"},
			},
			CorrectChoice: "c2",
			CreatedAt:     now,
		},
		{
			ID:      "q-demo-2",
			EventID: event.ID,
			Text:    "What does CSV stand for?",
			Choices: []domain.Choice{
				{ID: "c1", Text: "Comma-Separated Values"},
				{ID: "c2", Text: "Client-Side Validation"},
				{ID: "c3", Text: "Concurrent State Vector"},
				{ID: "c4", Text: "Checked Schema Version"},
			},
			CorrectChoice: "c1",
			CreatedAt:     now,
		},
		{
			ID:      "q-demo-3",
			EventID: event.ID,
			Text:    "Which store backs the rate limiter in production?",
			Choices: []domain.Choice{
				{ID: "c1", Text: "A process-local map"},
				{ID: "c2", Text: "Redis"},
				{ID: "c3", Text: "Browser local storage"},
				{ID: "c4", Text: "None"},
			},
			CorrectChoice: "c2",
			CreatedAt:     now,
		},
		{
			ID:      "q-demo-4",
			EventID: event.ID,
			Text:    "How many questions does a generated batch contain?",
			Choices: []domain.Choice{
				{ID: "c1", Text: "2"},
				{ID: "c2", Text: "3"},
				{ID: "c3", Text: "4"},
				{ID: "c4", Text: "10"},
			},
			CorrectChoice: "c3",
			CreatedAt:     now,
		},
	}

	if err := writeSeed(ctx, store, app.CollectionUsers, users); err != nil {
		return err
	}
	if err := writeSeed(ctx, store, app.CollectionEvents, []domain.Event{event}); err != nil {
		return err
	}
	if err := writeSeed(ctx, store, app.CollectionQuestions, questions); err != nil {
		return err
	}

	log.Printf("seeded %d users, 1 event, %d questions", len(users), len(questions))
	return nil
}

func writeSeed[T any](ctx context.Context, store app.RecordStore, collection string, items []T) error {
	records := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode seed %s: %w", collection, err)
		}
		records = append(records, raw)
	}
	return store.WriteAll(ctx, collection, records)
}
