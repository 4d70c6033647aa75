package services

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"learnhub/models"
	"learnhub/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuizLookup struct {
	quiz *models.Quiz
}

func (f *fakeQuizLookup) GetQuizByID(quizID uint) (*models.Quiz, error) {
	if f.quiz == nil || f.quiz.ID != quizID {
		return nil, errors.New("quiz not found")
	}
	return f.quiz, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	calls    int
	failures int // number of leading calls that fail
	lastArgs models.AnswerMap
}

func (f *fakeRecorder) RecordAttempt(userID, quizID uint, answers models.AnswerMap, startedAt time.Time) (*models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArgs = answers
	if f.calls <= f.failures {
		return nil, errors.New("db down")
	}
	return &models.QuizAttempt{UserID: userID, QuizID: quizID, Answers: answers}, nil
}

func (f *fakeRecorder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeBroadcaster) BroadcastToSession(sessionID, messageType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, messageType)
}

func (f *fakeBroadcaster) received(messageType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m == messageType {
			return true
		}
	}
	return false
}

// memorySnapshotStore round-trips through JSON like the Redis store does, so
// restore tests exercise the same serialization boundary.
type memorySnapshotStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{items: make(map[string][]byte)}
}

func (m *memorySnapshotStore) save(sess *session.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	m.mu.Lock()
	m.items[sess.ID] = data
	m.mu.Unlock()
}

func (m *memorySnapshotStore) load(sessionID string) (*session.Session, error) {
	m.mu.Lock()
	data, ok := m.items[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, errors.New("snapshot not found")
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (m *memorySnapshotStore) remove(sessionID string) {
	m.mu.Lock()
	delete(m.items, sessionID)
	m.mu.Unlock()
}

func testQuiz(timeLimit int) *models.Quiz {
	return &models.Quiz{
		ID:           7,
		Title:        "Fractions basics",
		TimeLimit:    timeLimit,
		PassingScore: 70,
		Questions: models.QuestionList{
			{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, Correct: 1},
			{ID: "q2", Prompt: "3+3?", Options: []string{"6", "7"}, Correct: 0},
		},
	}
}

func newTestService(quiz *models.Quiz, recorder *fakeRecorder, hub *fakeBroadcaster) *SessionService {
	var broadcaster SessionBroadcaster
	if hub != nil {
		broadcaster = hub
	}
	return NewSessionService(nil, &fakeQuizLookup{quiz: quiz}, recorder, broadcaster)
}

func TestStartSessionSanitizesQuestions(t *testing.T) {
	svc := newTestService(testQuiz(0), &fakeRecorder{}, nil)

	state, err := svc.StartSession(1, 7)

	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, 2, state.TotalQuestions)
	assert.Len(t, state.Questions, 2)
	assert.Equal(t, "q1", state.Questions[0].ID)
	assert.Equal(t, []string{"3", "4"}, state.Questions[0].Options)
}

func TestStartSessionUnknownQuiz(t *testing.T) {
	svc := newTestService(testQuiz(0), &fakeRecorder{}, nil)

	_, err := svc.StartSession(1, 99)

	assert.Error(t, err)
}

func TestSelectAnswerAndNavigate(t *testing.T) {
	svc := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	one := 1
	updated, err := svc.SelectAnswer(state.ID, 1, &SelectAnswerRequest{QuestionID: "q1", OptionIndex: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Answers["q1"])

	updated, err = svc.Navigate(state.ID, 1, &NavigateRequest{Direction: "next"})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Current)

	idx := 0
	updated, err = svc.Navigate(state.ID, 1, &NavigateRequest{Index: &idx})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Current)
}

func TestSelectAnswerRejectsBadOption(t *testing.T) {
	svc := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	five := 5
	_, err = svc.SelectAnswer(state.ID, 1, &SelectAnswerRequest{QuestionID: "q1", OptionIndex: &five})

	assert.Error(t, err)
}

func TestSessionOwnership(t *testing.T) {
	svc := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	_, err = svc.GetSession(state.ID, 2)
	assert.EqualError(t, err, "session not found")

	assert.NoError(t, svc.ValidateOwnership(state.ID, 1))
	assert.Error(t, svc.ValidateOwnership(state.ID, 2))
}

func TestSubmitRecordsExactlyOnce(t *testing.T) {
	recorder := &fakeRecorder{}
	hub := &fakeBroadcaster{}
	svc := newTestService(testQuiz(0), recorder, hub)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	one := 1
	_, err = svc.SelectAnswer(state.ID, 1, &SelectAnswerRequest{QuestionID: "q1", OptionIndex: &one})
	require.NoError(t, err)

	first, err := svc.Submit(state.ID, 1)
	require.NoError(t, err)
	assert.True(t, first.Saved)
	assert.Equal(t, 1, first.Result.CorrectCount)
	assert.Equal(t, 50, first.Result.ScorePercent)
	assert.False(t, first.Result.Passed)

	second, err := svc.Submit(state.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, recorder.callCount())
	assert.True(t, hub.received("session_completed"))
}

func TestSubmitRetriesOnceThenSucceeds(t *testing.T) {
	recorder := &fakeRecorder{failures: 1}
	svc := newTestService(testQuiz(0), recorder, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	result, err := svc.Submit(state.ID, 1)

	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Empty(t, result.Warning)
	assert.Equal(t, 2, recorder.callCount())
}

func TestSubmitWarnsWhenRecordingFails(t *testing.T) {
	recorder := &fakeRecorder{failures: 2}
	svc := newTestService(testQuiz(0), recorder, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	result, err := svc.Submit(state.ID, 1)

	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.Contains(t, result.Warning, "result not saved")
	assert.Nil(t, result.Attempt)
	// The locally computed score is still returned.
	assert.Equal(t, 0, result.Result.CorrectCount)
	assert.Equal(t, 2, recorder.callCount())
}

func TestAbandonNeverRecords(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(testQuiz(0), recorder, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Abandon(state.ID, 1))

	assert.Equal(t, 0, recorder.callCount())
	_, err = svc.GetSession(state.ID, 1)
	assert.Error(t, err)
}

func TestConcurrentSubmitsRecordOnce(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(testQuiz(0), recorder, nil)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(state.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, recorder.callCount())
}

func liveCount(svc *SessionService) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.live)
}

func TestSessionRestoredFromSnapshot(t *testing.T) {
	store := newMemorySnapshotStore()
	recorderA := &fakeRecorder{}
	svcA := newTestService(testQuiz(0), recorderA, nil)
	svcA.snapshots = store

	state, err := svcA.StartSession(1, 7)
	require.NoError(t, err)
	one := 1
	_, err = svcA.SelectAnswer(state.ID, 1, &SelectAnswerRequest{QuestionID: "q1", OptionIndex: &one})
	require.NoError(t, err)

	// A fresh service with the same store stands in for a restarted process.
	recorderB := &fakeRecorder{}
	svcB := newTestService(testQuiz(0), recorderB, nil)
	svcB.snapshots = store

	restored, err := svcB.GetSession(state.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, session.StateInProgress, restored.State)
	assert.Equal(t, 1, restored.Answers["q1"])

	result, err := svcB.Submit(state.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, 1, result.Result.CorrectCount)
	assert.Equal(t, 1, recorderB.callCount())
	assert.Equal(t, 0, recorderA.callCount())
}

func TestRestoreRejectsWrongUser(t *testing.T) {
	store := newMemorySnapshotStore()
	svcA := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	svcA.snapshots = store
	state, err := svcA.StartSession(1, 7)
	require.NoError(t, err)

	svcB := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	svcB.snapshots = store

	_, err = svcB.GetSession(state.ID, 2)
	assert.EqualError(t, err, "session not found")
}

func TestRestoredCompletedSessionServesStoredResult(t *testing.T) {
	store := newMemorySnapshotStore()
	recorderA := &fakeRecorder{}
	svcA := newTestService(testQuiz(0), recorderA, nil)
	svcA.snapshots = store

	state, err := svcA.StartSession(1, 7)
	require.NoError(t, err)
	one := 1
	_, err = svcA.SelectAnswer(state.ID, 1, &SelectAnswerRequest{QuestionID: "q1", OptionIndex: &one})
	require.NoError(t, err)
	first, err := svcA.Submit(state.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, recorderA.callCount())

	recorderB := &fakeRecorder{}
	svcB := newTestService(testQuiz(0), recorderB, nil)
	svcB.snapshots = store

	late, err := svcB.Submit(state.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Result, late.Result)
	assert.True(t, late.Saved)
	// The restored outcome comes from the snapshot; nothing is recorded twice.
	assert.Equal(t, 0, recorderB.callCount())
}

func TestAbandonedSessionCannotBeRestored(t *testing.T) {
	store := newMemorySnapshotStore()
	svcA := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	svcA.snapshots = store
	state, err := svcA.StartSession(1, 7)
	require.NoError(t, err)

	require.NoError(t, svcA.Abandon(state.ID, 1))

	svcB := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	svcB.snapshots = store
	_, err = svcB.GetSession(state.ID, 1)
	assert.Error(t, err)
}

func TestRestoredTimedSessionResumesCountdown(t *testing.T) {
	store := newMemorySnapshotStore()
	svcA := newTestService(testQuiz(2), &fakeRecorder{}, nil)
	svcA.snapshots = store
	state, err := svcA.StartSession(1, 7)
	require.NoError(t, err)

	recorderB := &fakeRecorder{}
	svcB := newTestService(testQuiz(2), recorderB, nil)
	svcB.snapshots = store

	restored, err := svcB.GetSession(state.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, session.StateInProgress, restored.State)

	deadline := time.Now().Add(6 * time.Second)
	for recorderB.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	assert.Equal(t, 1, recorderB.callCount())
}

func TestCompletedSessionsEvicted(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(testQuiz(0), recorder, nil)
	svc.retention = 20 * time.Millisecond

	for i := 0; i < 5; i++ {
		state, err := svc.StartSession(1, 7)
		require.NoError(t, err)
		_, err = svc.Submit(state.ID, 1)
		require.NoError(t, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for liveCount(svc) > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, 0, liveCount(svc))
}

func TestIdleSessionsSwept(t *testing.T) {
	svc := newTestService(testQuiz(0), &fakeRecorder{}, nil)
	stale, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	svc.mu.Lock()
	svc.live[stale.ID].touched = time.Now().Add(-3 * time.Hour)
	svc.mu.Unlock()

	// Starting another session triggers the sweep.
	_, err = svc.StartSession(1, 7)
	require.NoError(t, err)

	_, err = svc.GetSession(stale.ID, 1)
	assert.Error(t, err)
	assert.Equal(t, 1, liveCount(svc))
}

func TestTimerExpiryFinalizesSession(t *testing.T) {
	recorder := &fakeRecorder{}
	hub := &fakeBroadcaster{}
	svc := newTestService(testQuiz(1), recorder, hub)
	state, err := svc.StartSession(1, 7)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for recorder.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}

	assert.Equal(t, 1, recorder.callCount())
	assert.True(t, hub.received("timer_update"))
	assert.True(t, hub.received("session_completed"))

	// A submit after expiry returns the stored outcome without recording again.
	result, err := svc.Submit(state.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, 1, recorder.callCount())
}
