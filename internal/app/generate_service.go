package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"eventqa-service/internal/domain"
	"github.com/google/uuid"
)

// generationModel names the stubbed model recorded on audit entries. The
// generator is a fixed-payload stand-in for a real AI SDK call.
const generationModel = "gpt-4o-mock"

// GenerationResult is the client-facing outcome of a generation call.
type GenerationResult struct {
	Questions []domain.PublicQuestion `json:"questions"`
	AuditID   string                  `json:"audit_id"`
}

// GenerateService produces a curated batch of exactly four questions per
// event and writes an integrity audit record for every call.
type GenerateService struct {
	store     RecordStore
	questions QuestionRepository
	now       func() time.Time
}

func NewGenerateService(store RecordStore, questions QuestionRepository) *GenerateService {
	return &GenerateService{store: store, questions: questions, now: time.Now}
}

// WithClock overrides the timestamp source, for deterministic tests.
func (s *GenerateService) WithClock(now func() time.Time) *GenerateService {
	s.now = now
	return s
}

// Generate creates the event's question batch. Events that already have
// questions are rejected; generation is a one-shot per event.
func (s *GenerateService) Generate(ctx context.Context, event domain.Event) (GenerationResult, error) {
	existing, err := s.questions.QuestionsByEvent(ctx, event.ID)
	if err != nil {
		return GenerationResult{}, err
	}
	if len(existing) > 0 {
		return GenerationResult{}, domain.ErrQuestionsExist
	}

	generated := mockQuestions(event.ID, s.now().UTC())

	audit, err := s.appendAudit(ctx, event, generated)
	if err != nil {
		return GenerationResult{}, err
	}

	all, err := readCollection[domain.Question](ctx, s.store, CollectionQuestions)
	if err != nil {
		return GenerationResult{}, err
	}
	all = append(all, generated...)
	if err := writeCollection(ctx, s.store, CollectionQuestions, all); err != nil {
		return GenerationResult{}, err
	}

	public := make([]domain.PublicQuestion, 0, len(generated))
	for _, q := range generated {
		public = append(public, q.Public())
	}
	return GenerationResult{Questions: public, AuditID: audit.ID}, nil
}

// Audits returns the generation audit trail for an event.
func (s *GenerateService) Audits(ctx context.Context, eventID string) ([]domain.AiAudit, error) {
	all, err := readCollection[domain.AiAudit](ctx, s.store, CollectionAiAudits)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.AiAudit, 0, len(all))
	for _, audit := range all {
		if audit.EventID == eventID {
			matched = append(matched, audit)
		}
	}
	return matched, nil
}

func (s *GenerateService) appendAudit(ctx context.Context, event domain.Event, payload []domain.Question) (domain.AiAudit, error) {
	hash, err := ResponseHash(payload)
	if err != nil {
		return domain.AiAudit{}, err
	}
	audit := domain.AiAudit{
		ID:           "audit-" + uuid.NewString(),
		EventID:      event.ID,
		Prompt:       fmt.Sprintf("Generate 4 multiple-choice questions for event: %s", event.Title),
		Model:        generationModel,
		ResponseHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	audits, err := readCollection[domain.AiAudit](ctx, s.store, CollectionAiAudits)
	if err != nil {
		return domain.AiAudit{}, err
	}
	audits = append(audits, audit)
	if err := writeCollection(ctx, s.store, CollectionAiAudits, audits); err != nil {
		return domain.AiAudit{}, err
	}
	return audit, nil
}

// ResponseHash derives the integrity hash stored on audit records: the
// sha256 of the payload's JSON encoding, prefixed with the algorithm name.
func ResponseHash(payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode generation payload: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// VerifyResponseHash recomputes the payload hash and compares it with the
// audited one.
func VerifyResponseHash(expected string, payload any) (bool, error) {
	computed, err := ResponseHash(payload)
	if err != nil {
		return false, err
	}
	return computed == expected, nil
}

// mockQuestions is the fixed generation payload: four questions, four
// choices each, first choice correct.
func mockQuestions(eventID string, createdAt time.Time) []domain.Question {
	prompts := []struct {
		text    string
		choices []string
	}{
		{
			text: "What is the primary goal of server-side rendering?",
			choices: []string{
				"Improve SEO and initial load performance",
				"Reduce server costs",
				"Simplify CSS styling",
				"Increase client-side processing",
			},
		},
		{
			text: "Which of the following is a benefit of file-based routing?",
			choices: []string{
				"Simpler configuration",
				"Automatic database connection management",
				"Built-in authentication for all users",
				"Eliminates the need for frontend testing",
			},
		},
		{
			text: "What should be kept server-side and never exposed to clients?",
			choices: []string{
				"API keys and secrets",
				"Event data and titles",
				"User preferences",
				"Question text",
			},
		},
		{
			text: "How should rate limiting be implemented for production?",
			choices: []string{
				"Redis or specialized rate-limiting service",
				"In-memory JavaScript objects",
				"Client-side validation only",
				"No rate limiting needed",
			},
		},
	}

	questions := make([]domain.Question, 0, len(prompts))
	for i, prompt := range prompts {
		choices := make([]domain.Choice, 0, len(prompt.choices))
		for j, text := range prompt.choices {
			choices = append(choices, domain.Choice{ID: fmt.Sprintf("c%d", j+1), Text: text})
		}
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("q-%s-%d", uuid.NewString(), i+1),
			EventID:       eventID,
			Text:          prompt.text,
			Choices:       choices,
			CorrectChoice: "c1",
			GeneratedByAI: true,
			CreatedAt:     createdAt,
		})
	}
	return questions
}
