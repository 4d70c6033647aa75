package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"learnhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompletions serves a fixed assistant message in the chat-completions
// wire format and captures the request for inspection.
func stubCompletions(t *testing.T, content string, captured *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		resp := chatResponse{
			Choices: []chatResponseChoice{
				{Message: chatMessage{Role: "assistant", Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestTutorReplyParsesJSON(t *testing.T) {
	var captured chatRequest
	server := stubCompletions(t, `{"response": "A fraction is part of a whole.", "confidence": 0.9, "subject": "Math", "suggestions": ["Practice with halves"]}`, &captured)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	reply := client.TutorReply(context.Background(), "What is a fraction?", TutorContext{Subject: "Math", Grade: "5"})

	assert.Equal(t, "A fraction is part of a whole.", reply.Response)
	assert.Equal(t, 0.9, reply.Confidence)
	assert.Equal(t, "Math", reply.Subject)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "Subject: Math")
	assert.Equal(t, "What is a fraction?", captured.Messages[1].Content)
	assert.Equal(t, "test-model", captured.Model)
}

func TestTutorReplyIncludesRecentHistory(t *testing.T) {
	var captured chatRequest
	server := stubCompletions(t, `{"response": "ok", "confidence": 1}`, &captured)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	client.TutorReply(context.Background(), "and then?", TutorContext{
		PreviousMessages: []models.ChatMessage{
			{Role: "user", Content: "one"},
			{Role: "assistant", Content: "two"},
			{Role: "user", Content: "three"},
			{Role: "assistant", Content: "four"},
		},
	})

	// Only the last three messages make it into the prompt.
	system := captured.Messages[0].Content
	assert.NotContains(t, system, "user: one")
	assert.Contains(t, system, "assistant: two")
	assert.Contains(t, system, "user: three")
	assert.Contains(t, system, "assistant: four")
}

func TestTutorReplyFallsBackOnOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	reply := client.TutorReply(context.Background(), "hello", TutorContext{})

	require.NotNil(t, reply)
	assert.NotEmpty(t, reply.Response)
	assert.Equal(t, 0.1, reply.Confidence)
	assert.NotEmpty(t, reply.Suggestions)
}

func TestTutorReplyReturnsRawContentWhenNotJSON(t *testing.T) {
	server := stubCompletions(t, "Just a plain prose answer.", nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	reply := client.TutorReply(context.Background(), "hello", TutorContext{})

	assert.Equal(t, "Just a plain prose answer.", reply.Response)
	assert.Equal(t, 0.5, reply.Confidence)
}

func TestGenerateQuizStripsCodeFences(t *testing.T) {
	payload := "```json\n" + `{
  "questions": [
    {"id": "q1", "prompt": "2+2?", "options": ["3", "4", "5", "6"], "correct": 1, "explanation": "basic sum"},
    {"prompt": "3+3?", "options": ["5", "6", "7", "8"], "correct": 1, "explanation": "basic sum"}
  ],
  "passing_score": 80
}` + "\n```"
	server := stubCompletions(t, payload, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	quiz, err := client.GenerateQuiz(context.Background(), "arithmetic", "beginner", 2)

	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "q1", quiz.Questions[0].ID)
	// Missing id gets a positional one.
	assert.Equal(t, "q2", quiz.Questions[1].ID)
	assert.Equal(t, 80, quiz.PassingScore)
}

func TestGenerateQuizRejectsInvalidQuestions(t *testing.T) {
	server := stubCompletions(t, `{"questions": [{"id": "q1", "prompt": "bad", "options": ["only one"], "correct": 0}], "passing_score": 70}`, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	_, err := client.GenerateQuiz(context.Background(), "arithmetic", "beginner", 1)

	assert.Error(t, err)
}

func TestGenerateQuizClampsPassingScore(t *testing.T) {
	server := stubCompletions(t, `{"questions": [{"id": "q1", "prompt": "2+2?", "options": ["3", "4"], "correct": 1}], "passing_score": 150}`, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	quiz, err := client.GenerateQuiz(context.Background(), "arithmetic", "beginner", 1)

	require.NoError(t, err)
	assert.Equal(t, 70, quiz.PassingScore)
}

func TestGenerateQuizFailsOnOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	_, err := client.GenerateQuiz(context.Background(), "arithmetic", "beginner", 1)

	assert.Error(t, err)
}

func TestAnalyzeProgressParsesJSON(t *testing.T) {
	server := stubCompletions(t, `{"progress_analysis": "Solid pace.", "recommendations": ["Keep going"], "predicted_score": 88}`, nil)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	analysis := client.AnalyzeProgress(context.Background(), ProgressStats{
		CompletedLessons: 8, TotalLessons: 10, QuizScores: []int{70, 90}, HoursSpent: 12,
	})

	assert.Equal(t, "Solid pace.", analysis.ProgressAnalysis)
	assert.Equal(t, 88, analysis.PredictedScore)
}

func TestAnalyzeProgressFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	analysis := client.AnalyzeProgress(context.Background(), ProgressStats{})

	require.NotNil(t, analysis)
	assert.NotEmpty(t, analysis.Recommendations)
	assert.Equal(t, 75, analysis.PredictedScore)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Sure, here you go: {\"a\": 1} hope that helps", `{"a": 1}`},
	}
	for _, tc := range cases {
		assert.JSONEq(t, tc.want, string(extractJSON(tc.in)))
	}
}
