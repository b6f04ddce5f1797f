package app

import (
	"context"
	"math"
	"sort"
	"time"

	"eventqa-service/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// unknownQuestionText stands in when an answer references a question that
// cannot be resolved; the aggregation never fails over a dangling reference.
const unknownQuestionText = "Unknown Question"

// AggregateService computes statistics over all answers to an event's
// questions, per question and per user.
type AggregateService struct {
	store     RecordStore
	questions QuestionRepository
	now       func() time.Time
	collator  *collate.Collator
}

func NewAggregateService(store RecordStore, questions QuestionRepository) *AggregateService {
	return &AggregateService{
		store:     store,
		questions: questions,
		now:       time.Now,
		collator:  collate.New(language.Und),
	}
}

// WithClock overrides the timestamp source, for deterministic tests.
func (s *AggregateService) WithClock(now func() time.Time) *AggregateService {
	s.now = now
	return s
}

// EventStats builds per-question statistics for an event. The caller is
// responsible for having resolved the event; this method does not re-check
// its existence.
func (s *AggregateService) EventStats(ctx context.Context, event domain.Event) (domain.EventStats, error) {
	questions, err := s.questions.QuestionsByEvent(ctx, event.ID)
	if err != nil {
		return domain.EventStats{}, err
	}
	answers, err := s.eventAnswers(ctx, questions)
	if err != nil {
		return domain.EventStats{}, err
	}

	stats := make([]domain.QuestionStats, 0, len(questions))
	for _, question := range questions {
		stats = append(stats, buildQuestionStats(question, answers))
	}

	respondents := make(map[string]struct{}, len(answers))
	for _, answer := range answers {
		respondents[answer.UserID] = struct{}{}
	}

	return domain.EventStats{
		EventID:          event.ID,
		EventTitle:       event.Title,
		TotalRespondents: len(respondents),
		Questions:        stats,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

// UserAggregates groups the event's answers by user. Duplicate answers for
// the same question are collapsed to the latest by timestamp, and users
// without a stored User record are dropped silently. The result is sorted by
// display name, ascending, with a locale-aware comparison; ties keep the
// original grouping order.
func (s *AggregateService) UserAggregates(ctx context.Context, event domain.Event) ([]domain.UserAggregate, error) {
	questions, err := s.questions.QuestionsByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	answers, err := s.eventAnswers(ctx, questions)
	if err != nil {
		return nil, err
	}
	users, err := readCollection[domain.User](ctx, s.store, CollectionUsers)
	if err != nil {
		return nil, err
	}

	usersByID := make(map[string]domain.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}

	questionText := make(map[string]string, len(questions))
	for _, q := range questions {
		questionText[q.ID] = q.Text
	}

	// Group answers per user, keeping the latest answer per question by
	// created_at (not insertion order).
	type userGroup struct {
		byQuestion map[string]domain.Answer
		order      []string
	}
	groups := make(map[string]*userGroup)
	userOrder := make([]string, 0)
	for _, answer := range answers {
		group, ok := groups[answer.UserID]
		if !ok {
			group = &userGroup{byQuestion: make(map[string]domain.Answer)}
			groups[answer.UserID] = group
			userOrder = append(userOrder, answer.UserID)
		}
		existing, seen := group.byQuestion[answer.QuestionID]
		if !seen {
			group.order = append(group.order, answer.QuestionID)
			group.byQuestion[answer.QuestionID] = answer
			continue
		}
		if answer.CreatedAt.After(existing.CreatedAt) {
			group.byQuestion[answer.QuestionID] = answer
		}
	}

	aggregates := make([]domain.UserAggregate, 0, len(groups))
	for _, userID := range userOrder {
		user, ok := usersByID[userID]
		if !ok {
			continue
		}
		group := groups[userID]
		projected := make([]domain.UserAnswer, 0, len(group.order))
		for _, questionID := range group.order {
			answer := group.byQuestion[questionID]
			text, ok := questionText[questionID]
			if !ok {
				text = unknownQuestionText
			}
			projected = append(projected, domain.UserAnswer{
				QuestionID:     questionID,
				QuestionText:   text,
				SelectedChoice: answer.SelectedChoice,
				IsCorrect:      answer.IsCorrect,
			})
		}
		aggregates = append(aggregates, domain.UserAggregate{User: user, Answers: projected})
	}

	sort.SliceStable(aggregates, func(i, j int) bool {
		return s.collator.CompareString(aggregates[i].User.Name, aggregates[j].User.Name) < 0
	})
	return aggregates, nil
}

// eventAnswers returns, in natural collection order, every answer referencing
// one of the given questions.
func (s *AggregateService) eventAnswers(ctx context.Context, questions []domain.Question) ([]domain.Answer, error) {
	all, err := readCollection[domain.Answer](ctx, s.store, CollectionAnswers)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		ids[q.ID] = struct{}{}
	}
	matched := make([]domain.Answer, 0, len(all))
	for _, answer := range all {
		if _, ok := ids[answer.QuestionID]; ok {
			matched = append(matched, answer)
		}
	}
	return matched, nil
}

func buildQuestionStats(question domain.Question, answers []domain.Answer) domain.QuestionStats {
	total := 0
	correct := 0
	counts := make(map[string]int, len(question.Choices))
	for _, answer := range answers {
		if answer.QuestionID != question.ID {
			continue
		}
		total++
		if answer.IsCorrect {
			correct++
		}
		counts[answer.SelectedChoice]++
	}

	breakdown := make([]domain.ChoiceBreakdown, 0, len(question.Choices))
	for _, choice := range question.Choices {
		breakdown = append(breakdown, domain.ChoiceBreakdown{
			ChoiceID:   choice.ID,
			ChoiceText: choice.Text,
			Count:      counts[choice.ID],
			Percentage: percentage(counts[choice.ID], total),
		})
	}

	return domain.QuestionStats{
		QuestionID:        question.ID,
		QuestionText:      question.Text,
		TotalAnswers:      total,
		CorrectAnswers:    correct,
		PercentageCorrect: percentage(correct, total),
		ChoicesBreakdown:  breakdown,
	}
}

// percentage rounds half-up to the nearest integer point; zero when there are
// no answers. Per-choice percentages are rounded independently and need not
// sum to 100.
func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
