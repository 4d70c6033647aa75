package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"learnhub/models"
	"learnhub/session"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// sessionTTL bounds both the Redis snapshot and the in-memory registry:
	// a session nobody touches for this long is gone everywhere.
	sessionTTL = 2 * time.Hour

	// completedRetention is how long a finished session stays in memory for
	// idempotent re-submits before it is evicted; later readers are served
	// from the snapshot.
	completedRetention = 5 * time.Minute
)

// AttemptRecorder persists a finalized attempt. Satisfied by AttemptService;
// faked in tests.
type AttemptRecorder interface {
	RecordAttempt(userID, quizID uint, answers models.AnswerMap, startedAt time.Time) (*models.QuizAttempt, error)
}

// SessionBroadcaster pushes real-time session events to subscribed clients.
type SessionBroadcaster interface {
	BroadcastToSession(sessionID, messageType string, payload interface{})
}

// QuizLookup resolves a quiz with its full question list, answer key
// included. Satisfied by QuizService.
type QuizLookup interface {
	GetQuizByID(quizID uint) (*models.Quiz, error)
}

// snapshotStore persists session snapshots so live sessions survive a
// process restart. Backed by Redis; faked in tests.
type snapshotStore interface {
	save(sess *session.Session)
	load(sessionID string) (*session.Session, error)
	remove(sessionID string)
}

// SessionService owns all live quiz sessions. Each session is an isolated
// state machine guarded by its own mutex; the service adds the countdown
// ticker, the Redis snapshot, and the exactly-once hand-off to the attempt
// recorder on completion. A session missing from the in-memory registry is
// restored from its snapshot on the next touch.
type SessionService struct {
	mu        sync.Mutex
	live      map[string]*liveSession
	snapshots snapshotStore
	quizzes   QuizLookup
	recorder  AttemptRecorder
	hub       SessionBroadcaster
	retention time.Duration
}

type liveSession struct {
	mu      sync.Mutex
	sess    *session.Session
	stop    chan struct{}
	stopped bool
	outcome *SubmitResult
	touched time.Time // guarded by SessionService.mu
}

func NewSessionService(redisClient *redis.Client, quizzes QuizLookup, recorder AttemptRecorder, hub SessionBroadcaster) *SessionService {
	svc := &SessionService{
		live:      make(map[string]*liveSession),
		quizzes:   quizzes,
		recorder:  recorder,
		hub:       hub,
		retention: completedRetention,
	}
	if redisClient != nil {
		svc.snapshots = &redisSnapshotStore{client: redisClient}
	}
	return svc
}

// SessionState is the caller-facing view of a session. The quiz snapshot is
// sanitized: correct indices stay server-side until completion.
type SessionState struct {
	ID             string              `json:"id"`
	State          session.State       `json:"state"`
	QuizID         uint                `json:"quiz_id"`
	Title          string              `json:"title"`
	Questions      []SanitizedQuestion `json:"questions"`
	TotalQuestions int                 `json:"total_questions"`
	Current        int                 `json:"current"`
	Answers        models.AnswerMap    `json:"answers"`
	TimeLimit      int                 `json:"time_limit"`
	Remaining      int                 `json:"remaining"`
}

// SubmitResult is what the caller sees after a submission. The locally
// computed result is always present; Saved reports whether the durable
// record was written, and Warning carries the "result not saved" notice
// when persistence failed after the automatic retry.
type SubmitResult struct {
	Result  session.Result      `json:"result"`
	Attempt *models.QuizAttempt `json:"attempt,omitempty"`
	Saved   bool                `json:"saved"`
	Warning string              `json:"warning,omitempty"`
}

type NavigateRequest struct {
	Direction string `json:"direction"` // next, prev
	Index     *int   `json:"index"`     // direct jump when set
}

type SelectAnswerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	OptionIndex *int   `json:"option_index" binding:"required"`
}

// StartSession snapshots the quiz and opens a new isolated session for the
// user. A configured time limit starts the countdown immediately.
func (s *SessionService) StartSession(userID, quizID uint) (*SessionState, error) {
	quiz, err := s.quizzes.GetQuizByID(quizID)
	if err != nil {
		return nil, errors.New("quiz not found")
	}

	snapshot := session.Snapshot{
		QuizID:       quiz.ID,
		Title:        quiz.Title,
		Questions:    quiz.Questions,
		TimeLimit:    quiz.TimeLimit,
		PassingScore: quiz.PassingScore,
	}

	sess := session.New(uuid.NewString(), userID)
	if err := sess.Start(snapshot, time.Now()); err != nil {
		return nil, err
	}

	ls := &liveSession{
		sess:    sess,
		stop:    make(chan struct{}),
		touched: time.Now(),
	}

	s.sweepIdle()

	s.mu.Lock()
	s.live[sess.ID] = ls
	s.mu.Unlock()

	s.storeSnapshot(sess)

	if quiz.TimeLimit > 0 {
		go s.runCountdown(ls)
	}

	log.Printf("Session %s started for user %d on quiz %d (%d questions, %ds limit)",
		sess.ID, userID, quizID, len(quiz.Questions), quiz.TimeLimit)

	return stateView(sess), nil
}

func (s *SessionService) GetSession(sessionID string, userID uint) (*SessionState, error) {
	ls, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return stateView(ls.sess), nil
}

func (s *SessionService) SelectAnswer(sessionID string, userID uint, req *SelectAnswerRequest) (*SessionState, error) {
	if req.OptionIndex == nil {
		return nil, errors.New("option_index is required")
	}

	ls, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if err := ls.sess.SelectAnswer(req.QuestionID, *req.OptionIndex); err != nil {
		return nil, err
	}
	s.storeSnapshot(ls.sess)
	return stateView(ls.sess), nil
}

func (s *SessionService) Navigate(sessionID string, userID uint, req *NavigateRequest) (*SessionState, error) {
	ls, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	switch {
	case req.Index != nil:
		err = ls.sess.JumpTo(*req.Index)
	case req.Direction == "next":
		err = ls.sess.Next()
	case req.Direction == "prev":
		err = ls.sess.Prev()
	default:
		err = fmt.Errorf("invalid navigation direction %q", req.Direction)
	}
	if err != nil {
		return nil, err
	}

	s.storeSnapshot(ls.sess)
	return stateView(ls.sess), nil
}

// Submit finalizes the session on behalf of the user. Safe to call
// concurrently with timer expiry: the state machine's one-way transition
// decides the winner and the loser becomes a no-op.
func (s *SessionService) Submit(sessionID string, userID uint) (*SubmitResult, error) {
	ls, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.finalize(ls)
}

// Abandon discards the session without recording anything and stops the
// countdown.
func (s *SessionService) Abandon(sessionID string, userID uint) error {
	ls, err := s.lookup(sessionID, userID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	ls.sess.Reset()
	s.stopTicker(ls)
	ls.mu.Unlock()

	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()

	s.deleteSnapshot(sessionID)
	log.Printf("Session %s abandoned by user %d", sessionID, userID)
	return nil
}

// finalize performs the InProgress -> Completed transition and, on the first
// (and only first) transition, records the attempt with one automatic retry.
func (s *SessionService) finalize(ls *liveSession) (*SubmitResult, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	result, first, err := ls.sess.Submit(time.Now())
	if err != nil {
		return nil, err
	}
	if !first {
		if ls.outcome != nil {
			return ls.outcome, nil
		}
		return &SubmitResult{Result: result, Saved: false}, nil
	}

	s.stopTicker(ls)

	outcome := &SubmitResult{Result: result}

	attempt, recErr := s.recorder.RecordAttempt(
		ls.sess.UserID, ls.sess.Quiz.QuizID, ls.sess.Answers, ls.sess.StartedAt)
	if recErr != nil {
		log.Printf("Recording attempt for session %s failed, retrying once: %v", ls.sess.ID, recErr)
		attempt, recErr = s.recorder.RecordAttempt(
			ls.sess.UserID, ls.sess.Quiz.QuizID, ls.sess.Answers, ls.sess.StartedAt)
	}
	if recErr != nil {
		// The score the user sees is computed locally and stands on its own;
		// the failure to persist is surfaced, never swallowed.
		outcome.Saved = false
		outcome.Warning = "result not saved: " + recErr.Error()
	} else {
		outcome.Saved = true
		outcome.Attempt = attempt
	}

	ls.outcome = outcome
	s.storeSnapshot(ls.sess)

	sessionID := ls.sess.ID
	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, "session_completed", outcome)
	}

	// Hold the finished entry for idempotent re-submits, then evict it; the
	// snapshot keeps serving late readers until its TTL runs out.
	time.AfterFunc(s.retention, func() { s.evict(sessionID) })

	log.Printf("Session %s completed: score=%d passed=%t saved=%t",
		sessionID, result.ScorePercent, result.Passed, outcome.Saved)

	return outcome, nil
}

func (s *SessionService) evict(sessionID string) {
	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()
}

// sweepIdle drops sessions nobody has touched within the snapshot TTL. An
// idle session is either abandoned silently or still restorable from its
// snapshot, so the in-memory entry can go either way.
func (s *SessionService) sweepIdle() {
	cutoff := time.Now().Add(-sessionTTL)
	s.mu.Lock()
	for id, ls := range s.live {
		if ls.touched.Before(cutoff) {
			delete(s.live, id)
		}
	}
	s.mu.Unlock()
}

// runCountdown drives a timed session with a 1-second ticker. Expiry takes
// the same finalize path as an explicit submit.
func (s *SessionService) runCountdown(ls *liveSession) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ls.stop:
			return
		case <-ticker.C:
			ls.mu.Lock()
			if ls.sess.State != session.StateInProgress {
				ls.mu.Unlock()
				return
			}
			expired := ls.sess.Tick()
			remaining := ls.sess.Remaining
			sessionID := ls.sess.ID
			s.storeSnapshot(ls.sess)
			ls.mu.Unlock()

			if s.hub != nil {
				s.hub.BroadcastToSession(sessionID, "timer_update", map[string]interface{}{
					"remaining": remaining,
				})
			}

			if expired {
				log.Printf("Session %s timer expired", sessionID)
				if _, err := s.finalize(ls); err != nil {
					log.Printf("Failed to finalize expired session %s: %v", sessionID, err)
				}
				return
			}
		}
	}
}

func (s *SessionService) stopTicker(ls *liveSession) {
	if !ls.stopped {
		close(ls.stop)
		ls.stopped = true
	}
}

func (s *SessionService) lookup(sessionID string, userID uint) (*liveSession, error) {
	s.mu.Lock()
	ls, ok := s.live[sessionID]
	if ok {
		ls.touched = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		ls = s.restore(sessionID)
	}
	if ls == nil || ls.sess.UserID != userID {
		return nil, errors.New("session not found")
	}
	return ls, nil
}

// restore rehydrates a session from its snapshot when the registry misses,
// which happens after a process restart or an idle eviction. A timed session
// that is still in progress resumes its countdown from the remaining seconds.
func (s *SessionService) restore(sessionID string) *liveSession {
	if s.snapshots == nil {
		return nil
	}
	sess, err := s.snapshots.load(sessionID)
	if err != nil {
		return nil
	}

	ls := &liveSession{
		sess:    sess,
		stop:    make(chan struct{}),
		touched: time.Now(),
	}
	if sess.State == session.StateCompleted && sess.Outcome != nil {
		// The snapshot is written after the recorder ran, so a completed
		// snapshot reflects a stored attempt.
		ls.outcome = &SubmitResult{Result: *sess.Outcome, Saved: true}
	}

	s.mu.Lock()
	if existing, ok := s.live[sessionID]; ok {
		s.mu.Unlock()
		return existing
	}
	s.live[sessionID] = ls
	s.mu.Unlock()

	if sess.State == session.StateInProgress && sess.Quiz.TimeLimit > 0 {
		go s.runCountdown(ls)
	}

	log.Printf("Session %s restored from snapshot (state %s)", sessionID, sess.State)
	return ls
}

// ValidateOwnership reports whether a session exists and belongs to the
// user. Used by the WebSocket subscribe path.
func (s *SessionService) ValidateOwnership(sessionID string, userID uint) error {
	_, err := s.lookup(sessionID, userID)
	return err
}

func (s *SessionService) storeSnapshot(sess *session.Session) {
	if s.snapshots != nil {
		s.snapshots.save(sess)
	}
}

func (s *SessionService) deleteSnapshot(sessionID string) {
	if s.snapshots != nil {
		s.snapshots.remove(sessionID)
	}
}

type redisSnapshotStore struct {
	client *redis.Client
}

func (r *redisSnapshotStore) save(sess *session.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		log.Printf("Failed to marshal session %s: %v", sess.ID, err)
		return
	}
	if err := r.client.Set(context.Background(), "session:"+sess.ID, data, sessionTTL).Err(); err != nil {
		log.Printf("Failed to store session %s in Redis: %v", sess.ID, err)
	}
}

func (r *redisSnapshotStore) load(sessionID string) (*session.Session, error) {
	data, err := r.client.Get(context.Background(), "session:"+sessionID).Bytes()
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *redisSnapshotStore) remove(sessionID string) {
	if err := r.client.Del(context.Background(), "session:"+sessionID).Err(); err != nil {
		log.Printf("Failed to delete session %s from Redis: %v", sessionID, err)
	}
}

func stateView(sess *session.Session) *SessionState {
	view := &SessionState{
		ID:             sess.ID,
		State:          sess.State,
		QuizID:         sess.Quiz.QuizID,
		Title:          sess.Quiz.Title,
		TotalQuestions: len(sess.Quiz.Questions),
		Current:        sess.Current,
		Answers:        sess.Answers,
		TimeLimit:      sess.Quiz.TimeLimit,
		Remaining:      sess.Remaining,
	}
	view.Questions = make([]SanitizedQuestion, len(sess.Quiz.Questions))
	for i, q := range sess.Quiz.Questions {
		view.Questions[i] = SanitizedQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
		}
	}
	return view
}
