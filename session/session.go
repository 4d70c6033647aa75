package session

import (
	"errors"
	"fmt"
	"time"

	"learnhub/models"
)

// State of one quiz attempt. The InProgress -> Completed transition is
// one-way: whichever of user submission or timer expiry reaches it first
// wins, the other becomes a no-op.
type State string

const (
	StateSelecting  State = "selecting"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

var (
	ErrNotInProgress   = errors.New("session is not in progress")
	ErrNoQuestions     = errors.New("quiz has no questions")
	ErrUnknownQuestion = errors.New("question not in quiz")
	ErrInvalidOption   = errors.New("option index out of range")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Snapshot is the immutable copy of a quiz taken when an attempt starts.
// Later edits to the stored quiz do not affect a running session.
type Snapshot struct {
	QuizID       uint                `json:"quiz_id"`
	Title        string              `json:"title"`
	Questions    models.QuestionList `json:"questions"`
	TimeLimit    int                 `json:"time_limit"` // seconds, 0 = unbounded
	PassingScore int                 `json:"passing_score"`
}

// Session holds all transient state of one attempt. It is a plain value with
// no timers of its own: the caller drives the countdown through Tick with a
// ticker it owns, so tests can drive time directly and sessions never share
// clock state.
type Session struct {
	ID          string           `json:"id"`
	UserID      uint             `json:"user_id"`
	State       State            `json:"state"`
	Quiz        Snapshot         `json:"quiz"`
	Answers     models.AnswerMap `json:"answers"`
	Current     int              `json:"current"`
	Remaining   int              `json:"remaining"` // seconds left, if timed
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
	Outcome     *Result          `json:"outcome,omitempty"`
}

func New(id string, userID uint) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		State:  StateSelecting,
	}
}

// Start moves the session from Selecting into InProgress with a fresh answer
// map and an isolated snapshot of the quiz.
func (s *Session) Start(quiz Snapshot, now time.Time) error {
	if s.State != StateSelecting {
		return fmt.Errorf("cannot start session in state %q", s.State)
	}
	if len(quiz.Questions) == 0 {
		return ErrNoQuestions
	}
	s.Quiz = quiz
	s.Quiz.Questions = append(models.QuestionList(nil), quiz.Questions...)
	s.Answers = models.AnswerMap{}
	s.Current = 0
	s.Remaining = quiz.TimeLimit
	s.StartedAt = now
	s.State = StateInProgress
	return nil
}

// SelectAnswer records (or replaces) the choice for a question. An
// out-of-range option index is rejected with no state change: this is a
// data-integrity boundary, not a UX nicety.
func (s *Session) SelectAnswer(questionID string, optionIndex int) error {
	if s.State != StateInProgress {
		return ErrNotInProgress
	}
	question := s.question(questionID)
	if question == nil {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return ErrInvalidOption
	}
	s.Answers[questionID] = optionIndex
	return nil
}

// Next advances to the following question, clamped at the last one.
func (s *Session) Next() error {
	return s.move(1)
}

// Prev moves back one question, clamped at the first one.
func (s *Session) Prev() error {
	return s.move(-1)
}

func (s *Session) move(delta int) error {
	if s.State != StateInProgress {
		return ErrNotInProgress
	}
	idx := s.Current + delta
	if idx < 0 {
		idx = 0
	}
	if max := len(s.Quiz.Questions) - 1; idx > max {
		idx = max
	}
	s.Current = idx
	return nil
}

// JumpTo is direct navigation, e.g. from a question-index grid.
func (s *Session) JumpTo(index int) error {
	if s.State != StateInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(s.Quiz.Questions) {
		return ErrIndexOutOfRange
	}
	s.Current = index
	return nil
}

// Submit finalizes the attempt and scores it. Unanswered questions count as
// incorrect. The first call performs the transition and returns first=true;
// any later call is a no-op returning the already-computed result, which is
// what makes the user-submit and timer-expiry paths mutually exclusive
// without a lock of their own.
func (s *Session) Submit(now time.Time) (Result, bool, error) {
	switch s.State {
	case StateCompleted:
		return *s.Outcome, false, nil
	case StateInProgress:
		result := Score(s.Quiz.Questions, s.Quiz.PassingScore, s.Answers)
		s.Outcome = &result
		s.CompletedAt = now
		s.State = StateCompleted
		return result, true, nil
	default:
		return Result{}, false, ErrNotInProgress
	}
}

// Tick consumes one second of the countdown and reports whether the time
// limit has expired. Untimed and non-running sessions never expire.
func (s *Session) Tick() bool {
	if s.State != StateInProgress || s.Quiz.TimeLimit <= 0 {
		return false
	}
	if s.Remaining > 0 {
		s.Remaining--
	}
	return s.Remaining <= 0
}

// Reset returns to Selecting, discarding the snapshot and all answers. It is
// permitted in any state; an abandoned attempt is never recorded.
func (s *Session) Reset() {
	s.State = StateSelecting
	s.Quiz = Snapshot{}
	s.Answers = nil
	s.Current = 0
	s.Remaining = 0
	s.StartedAt = time.Time{}
	s.CompletedAt = time.Time{}
	s.Outcome = nil
}

func (s *Session) question(id string) *models.Question {
	for i := range s.Quiz.Questions {
		if s.Quiz.Questions[i].ID == id {
			return &s.Quiz.Questions[i]
		}
	}
	return nil
}
