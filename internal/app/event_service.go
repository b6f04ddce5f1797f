package app

import (
	"context"
	"strings"
	"time"

	"eventqa-service/internal/domain"
	"github.com/google/uuid"
)

const maxTitleLength = 200

// CreateEventInput is the admin payload for a new event.
type CreateEventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	QRCodeURL   string `json:"qr_code_url"`
	CreatedBy   string `json:"-"`
}

// UpdateEventInput carries optional edits; nil fields are left untouched.
type UpdateEventInput struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *domain.EventStatus `json:"status"`
}

// EventService owns event lifecycle: create, edit, lookup. Events are never
// physically deleted.
type EventService struct {
	store RecordStore
	now   func() time.Time
	newID func() string
}

func NewEventService(store RecordStore) *EventService {
	return &EventService{
		store: store,
		now:   time.Now,
		newID: func() string { return "evt-" + uuid.NewString() },
	}
}

// Create validates the input and appends a draft event.
func (s *EventService) Create(ctx context.Context, input CreateEventInput) (domain.Event, error) {
	verr := domain.NewValidationError()
	title := strings.TrimSpace(input.Title)
	if title == "" {
		verr.Add("title", "title is required")
	} else if len(title) > maxTitleLength {
		verr.Add("title", "title must be at most 200 characters")
	}
	if strings.TrimSpace(input.Description) == "" {
		verr.Add("description", "description is required")
	}
	if !verr.Empty() {
		return domain.Event{}, verr
	}

	events, err := readCollection[domain.Event](ctx, s.store, CollectionEvents)
	if err != nil {
		return domain.Event{}, err
	}
	event := domain.Event{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		QRCodeURL:   input.QRCodeURL,
		Status:      domain.EventDraft,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   s.now().UTC(),
	}
	events = append(events, event)
	if err := writeCollection(ctx, s.store, CollectionEvents, events); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// Update applies the provided edits to an existing event.
func (s *EventService) Update(ctx context.Context, eventID string, input UpdateEventInput) (domain.Event, error) {
	verr := domain.NewValidationError()
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			verr.Add("title", "title is required")
		} else if len(strings.TrimSpace(*input.Title)) > maxTitleLength {
			verr.Add("title", "title must be at most 200 characters")
		}
	}
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		verr.Add("status", "status must be draft, published, or archived")
	}
	if !verr.Empty() {
		return domain.Event{}, verr
	}

	events, err := readCollection[domain.Event](ctx, s.store, CollectionEvents)
	if err != nil {
		return domain.Event{}, err
	}
	for i := range events {
		if events[i].ID != eventID {
			continue
		}
		if input.Title != nil {
			events[i].Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			events[i].Description = strings.TrimSpace(*input.Description)
		}
		if input.Status != nil {
			events[i].Status = *input.Status
		}
		if err := writeCollection(ctx, s.store, CollectionEvents, events); err != nil {
			return domain.Event{}, err
		}
		return events[i], nil
	}
	return domain.Event{}, domain.ErrEventNotFound
}

// Get resolves an event by id.
func (s *EventService) Get(ctx context.Context, eventID string) (domain.Event, error) {
	events, err := readCollection[domain.Event](ctx, s.store, CollectionEvents)
	if err != nil {
		return domain.Event{}, err
	}
	for _, event := range events {
		if event.ID == eventID {
			return event, nil
		}
	}
	return domain.Event{}, domain.ErrEventNotFound
}

// List returns events in stored order, optionally only published ones.
func (s *EventService) List(ctx context.Context, publishedOnly bool) ([]domain.Event, error) {
	events, err := readCollection[domain.Event](ctx, s.store, CollectionEvents)
	if err != nil {
		return nil, err
	}
	if !publishedOnly {
		return events, nil
	}
	published := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if event.Status == domain.EventPublished {
			published = append(published, event)
		}
	}
	return published, nil
}
