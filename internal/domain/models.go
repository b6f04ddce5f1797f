package domain

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventArchived  EventStatus = "archived"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s EventStatus) bool {
	switch s {
	case EventDraft, EventPublished, EventArchived:
		return true
	}
	return false
}

// Role distinguishes admins from regular attendees.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Event is a Q&A session owning zero or more questions.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	QRCodeURL   string      `json:"qr_code_url,omitempty"`
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Choice is one selectable option within a question. Choice IDs are unique
// within their question, not globally.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the stored form of a multiple-choice prompt. CorrectChoice is
// server-only; use Public before serializing to clients.
type Question struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Text          string    `json:"text"`
	Choices       []Choice  `json:"choices"`
	CorrectChoice string    `json:"correct_choice"`
	GeneratedByAI bool      `json:"generated_by_ai"`
	CreatedAt     time.Time `json:"created_at"`
}

// PublicQuestion is the client-facing question payload, without the correct
// choice designation.
type PublicQuestion struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Text          string    `json:"text"`
	Choices       []Choice  `json:"choices"`
	GeneratedByAI bool      `json:"generated_by_ai"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public strips the correct choice for client payloads.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:            q.ID,
		EventID:       q.EventID,
		Text:          q.Text,
		Choices:       q.Choices,
		GeneratedByAI: q.GeneratedByAI,
		CreatedAt:     q.CreatedAt,
	}
}

// ChoiceText resolves a choice id to its text, reporting whether it exists.
func (q Question) ChoiceText(choiceID string) (string, bool) {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return c.Text, true
		}
	}
	return "", false
}

// Answer is one user's recorded response to one question. IsCorrect is
// derived at submission time and never recomputed afterwards.
type Answer struct {
	ID             string    `json:"id"`
	QuestionID     string    `json:"question_id"`
	UserID         string    `json:"user_id"`
	SelectedChoice string    `json:"selected_choice"`
	IsCorrect      bool      `json:"is_correct"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is an attendee or admin. Read-only in this service.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AiAudit is an immutable record of a question-generation call. It stores a
// hash of the generated payload, not the raw content.
type AiAudit struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Prompt       string    `json:"prompt"`
	Model        string    `json:"model"`
	ResponseHash string    `json:"response_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChoiceBreakdown is the answer distribution for one choice of a question.
type ChoiceBreakdown struct {
	ChoiceID   string `json:"choice_id"`
	ChoiceText string `json:"choice_text"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// QuestionStats summarizes all answers to one question.
type QuestionStats struct {
	QuestionID        string            `json:"question_id"`
	QuestionText      string            `json:"question_text"`
	TotalAnswers      int               `json:"total_answers"`
	CorrectAnswers    int               `json:"correct_answers"`
	PercentageCorrect int               `json:"percentage_correct"`
	ChoicesBreakdown  []ChoiceBreakdown `json:"choices_breakdown"`
}

// EventStats is the per-question aggregate view of an event.
type EventStats struct {
	EventID          string          `json:"event_id"`
	EventTitle       string          `json:"event_title"`
	TotalRespondents int             `json:"total_respondents"`
	Questions        []QuestionStats `json:"questions"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// UserAnswer is one retained answer projected into a user aggregate.
type UserAnswer struct {
	QuestionID     string `json:"question_id"`
	QuestionText   string `json:"question_text"`
	SelectedChoice string `json:"selected_choice"`
	IsCorrect      bool   `json:"is_correct"`
}

// UserAggregate groups a user's answers to an event's questions.
type UserAggregate struct {
	User    User         `json:"user"`
	Answers []UserAnswer `json:"answers"`
}

// AnswerFeedback is the per-question outcome returned by a batch submission.
// Unlike PublicQuestion it does expose the correct choice: feedback is only
// produced after the user has committed answers for the whole event.
type AnswerFeedback struct {
	QuestionID     string `json:"question_id"`
	SelectedChoice string `json:"selected_choice"`
	CorrectChoice  string `json:"correct_choice"`
	IsCorrect      bool   `json:"is_correct"`
	QuestionText   string `json:"question_text"`
}

// BatchResult is the outcome of submitting answers for every question of an
// event at once.
type BatchResult struct {
	Feedback       []AnswerFeedback `json:"feedback"`
	TotalCorrect   int              `json:"total_correct"`
	TotalQuestions int              `json:"total_questions"`
}
