package app

import (
	"context"
	"time"

	"eventqa-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnswerService is the scoring engine: it validates and scores submissions
// and appends the resulting answer records.
type AnswerService struct {
	store     RecordStore
	questions QuestionRepository
	live      *ResultsHub
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewAnswerService(store RecordStore, questions QuestionRepository, live *ResultsHub, log *zap.Logger) *AnswerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnswerService{
		store:     store,
		questions: questions,
		live:      live,
		log:       log,
		now:       time.Now,
		newID:     func() string { return "ans-" + uuid.NewString() },
	}
}

// WithClock overrides the timestamp source, for deterministic tests.
func (s *AnswerService) WithClock(now func() time.Time) *AnswerService {
	s.now = now
	return s
}

// ScoreChoice is the scoring rule: exact match against the question's
// correct choice. A selected choice that is not among the declared choices is
// simply never equal to the correct one and scores incorrect; the stored
// answer keeps the raw selection either way. Rejecting unknown choice ids
// outright was considered and not adopted, to keep history identical to what
// answering clients actually sent.
func ScoreChoice(q domain.Question, selectedChoice string) bool {
	return selectedChoice == q.CorrectChoice
}

// SubmitAnswer records a single answer. A second submission for the same
// (user, question) pair is always rejected, even with a different choice.
func (s *AnswerService) SubmitAnswer(ctx context.Context, questionID, userID, selectedChoice string) (domain.Answer, error) {
	verr := domain.NewValidationError()
	if questionID == "" {
		verr.Add("question_id", "question id is required")
	}
	if userID == "" {
		verr.Add("user_id", "user id is required")
	}
	if selectedChoice == "" {
		verr.Add("selected_choice", "select an answer")
	}
	if !verr.Empty() {
		return domain.Answer{}, verr
	}

	question, err := s.questions.QuestionByID(ctx, questionID)
	if err != nil {
		return domain.Answer{}, err
	}

	answers, err := readCollection[domain.Answer](ctx, s.store, CollectionAnswers)
	if err != nil {
		return domain.Answer{}, err
	}
	for _, existing := range answers {
		if existing.UserID == userID && existing.QuestionID == questionID {
			return domain.Answer{}, domain.ErrDuplicateSubmission
		}
	}

	answer := domain.Answer{
		ID:             s.newID(),
		QuestionID:     questionID,
		UserID:         userID,
		SelectedChoice: selectedChoice,
		IsCorrect:      ScoreChoice(question, selectedChoice),
		CreatedAt:      s.now().UTC(),
	}
	answers = append(answers, answer)
	if err := writeCollection(ctx, s.store, CollectionAnswers, answers); err != nil {
		return domain.Answer{}, err
	}

	s.log.Info("answer submitted",
		zap.String("answer_id", answer.ID),
		zap.String("question_id", questionID),
		zap.Bool("is_correct", answer.IsCorrect))
	s.notifyLive(ctx, question.EventID)
	return answer, nil
}

// SubmitAnswerBatch scores one answer per event question and commits them in
// a single collection write. Either every question is answered and persisted,
// or nothing is: answers are staged in memory until the whole batch has been
// scored.
func (s *AnswerService) SubmitAnswerBatch(ctx context.Context, eventID, userID string, selections map[string]string) (domain.BatchResult, error) {
	verr := domain.NewValidationError()
	if eventID == "" {
		verr.Add("event_id", "event id is required")
	}
	if userID == "" {
		verr.Add("user_id", "user id is required")
	}
	if !verr.Empty() {
		return domain.BatchResult{}, verr
	}

	questions, err := s.questions.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return domain.BatchResult{}, err
	}
	if len(questions) == 0 {
		return domain.BatchResult{}, domain.ErrNoQuestions
	}

	answers, err := readCollection[domain.Answer](ctx, s.store, CollectionAnswers)
	if err != nil {
		return domain.BatchResult{}, err
	}

	result := domain.BatchResult{
		Feedback:       make([]domain.AnswerFeedback, 0, len(questions)),
		TotalQuestions: len(questions),
	}
	staged := answers
	now := s.now().UTC()
	for _, question := range questions {
		selected, ok := selections[question.ID]
		if !ok || selected == "" {
			return domain.BatchResult{}, &domain.IncompleteSubmissionError{
				QuestionID:   question.ID,
				QuestionText: question.Text,
			}
		}
		correct := ScoreChoice(question, selected)
		if correct {
			result.TotalCorrect++
		}
		staged = append(staged, domain.Answer{
			ID:             s.newID(),
			QuestionID:     question.ID,
			UserID:         userID,
			SelectedChoice: selected,
			IsCorrect:      correct,
			CreatedAt:      now,
		})
		result.Feedback = append(result.Feedback, domain.AnswerFeedback{
			QuestionID:     question.ID,
			SelectedChoice: selected,
			CorrectChoice:  question.CorrectChoice,
			IsCorrect:      correct,
			QuestionText:   question.Text,
		})
	}

	if err := writeCollection(ctx, s.store, CollectionAnswers, staged); err != nil {
		return domain.BatchResult{}, err
	}

	s.log.Info("batch answers submitted",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
		zap.Int("total_questions", result.TotalQuestions),
		zap.Int("total_correct", result.TotalCorrect))
	s.notifyLive(ctx, eventID)
	return result, nil
}

func (s *AnswerService) notifyLive(ctx context.Context, eventID string) {
	if s.live == nil {
		return
	}
	if err := s.live.Publish(ctx, eventID); err != nil {
		s.log.Warn("live results publish failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
