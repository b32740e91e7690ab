package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/auth"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

var (
	beforeStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	duringQuiz  = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	afterEnd    = time.Date(2026, 3, 10, 11, 0, 1, 0, time.UTC)
)

type caller struct {
	id   string
	role string
}

var (
	teacher = caller{"teacher-1", "teacher"}
	admin   = caller{"admin-1", "admin"}
	student = caller{"student-1", "student"}
)

type server struct {
	t      *testing.T
	router *gin.Engine
	mu     sync.Mutex
	now    time.Time
}

func (s *server) setNow(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}

func newServer(t *testing.T, production bool) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &server{t: t, now: beforeStart}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := services.NewServiceManager(services.Dependencies{
		Quizzes:  memory.NewQuizRepository(),
		Attempts: memory.NewAttemptRepository(),
		Users:    memory.NewUserRepository(),
		Clock: services.ClockFunc(func() time.Time {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.now
		}),
		Logger:              logger,
		RankingCacheTTL:     time.Minute,
		PrizeCommissionMode: config.CommissionGross,
	})

	s.router = gin.New()
	NewHandlerManager(manager, auth.NewHeaderAuthenticator(), utils.NewDiscardLogger(), production).SetupRoutes(s.router)
	return s
}

func (s *server) do(who *caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(auth.HeaderUserID, who.id)
		req.Header.Set(auth.HeaderUserRole, who.role)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func quizBody(withTimeLimit bool) map[string]interface{} {
	questions := make([]map[string]interface{}, 0, 4)
	for i := 0; i < 4; i++ {
		q := map[string]interface{}{
			"questionText":  "Question",
			"options":       []string{"a", "b", "c", "d"},
			"correctAnswer": i,
		}
		if withTimeLimit {
			q["timeLimit"] = 20
		}
		questions = append(questions, q)
	}
	return map[string]interface{}{
		"title":     "Friday sprint",
		"questions": questions,
		"startDate": "2026-03-10",
		"endDate":   "2026-03-10",
		"startTime": "10:00",
		"endTime":   "11:00",
	}
}

func (s *server) createQuiz() string {
	s.t.Helper()
	w := s.do(&teacher, http.MethodPost, "/api/v1/quizzes", quizBody(true))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(s.t, w)["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestHealthAndAuth(t *testing.T) {
	s := newServer(t, false)

	w := s.do(nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(nil, http.MethodGet, "/api/v1/quizzes", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(&student, http.MethodPost, "/api/v1/quizzes", quizBody(true))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(&teacher, http.MethodPost, "/api/v1/admin/quizzes", quizBody(false))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateQuiz_TimeLimitPolicies(t *testing.T) {
	s := newServer(t, false)

	w := s.do(&teacher, http.MethodPost, "/api/v1/quizzes", quizBody(false))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, w.Body.String(), "questions[0].timeLimit")

	w = s.do(&admin, http.MethodPost, "/api/v1/admin/quizzes", quizBody(false))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	questions := decode(t, w)["data"].(map[string]interface{})["questions"].([]interface{})
	assert.EqualValues(t, 30, questions[0].(map[string]interface{})["timeLimit"])

	w = s.do(&teacher, http.MethodPost, "/api/v1/quizzes", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductionHidesErrorDetails(t *testing.T) {
	s := newServer(t, true)

	w := s.do(&teacher, http.MethodPost, "/api/v1/quizzes", quizBody(false))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Validation failed"}`, w.Body.String())
}

func TestQuizLifecycle(t *testing.T) {
	s := newServer(t, false)
	id := s.createQuiz()
	quizPath := "/api/v1/quizzes/" + id

	// students never see answer keys
	w := s.do(&student, http.MethodGet, quizPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "correctAnswer")
	assert.Equal(t, "scheduled", decode(t, w)["data"].(map[string]interface{})["phase"])

	w = s.do(&student, http.MethodPost, quizPath+"/enroll", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = s.do(&student, http.MethodPost, quizPath+"/enroll", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(&student, http.MethodPost, quizPath+"/answers", map[string]int{"questionIndex": 0, "selectedAnswer": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	s.setNow(duringQuiz)

	w = s.do(&teacher, http.MethodDelete, quizPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(&student, http.MethodPost, quizPath+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(&student, http.MethodPost, quizPath+"/answers", map[string]int{"questionIndex": 9, "selectedAnswer": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var last map[string]interface{}
	for i := 0; i < 4; i++ {
		w = s.do(&student, http.MethodPost, quizPath+"/answers", map[string]int{"questionIndex": i, "selectedAnswer": i, "timeSpent": 12})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		last = decode(t, w)["data"].(map[string]interface{})
	}
	assert.Equal(t, true, last["isQuizCompleted"])

	w = s.do(&student, http.MethodPost, quizPath+"/answers", map[string]int{"questionIndex": 0, "selectedAnswer": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(&student, http.MethodGet, quizPath+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["data"].(map[string]interface{})["status"])

	w = s.do(&student, http.MethodGet, quizPath+"/rankings?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rankings := decode(t, w)
	assert.Equal(t, true, rankings["success"])
	entries := rankings["rankings"].([]interface{})
	require.Len(t, entries, 1)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, student.id, first["studentId"])
	assert.Equal(t, "100.00", first["accuracy"])
	assert.EqualValues(t, 48, first["timeSpent"])
	assert.EqualValues(t, 1, rankings["statistics"].(map[string]interface{})["totalParticipants"])

	w = s.do(&student, http.MethodGet, quizPath+"/rankings?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(&student, http.MethodGet, quizPath+"/rankings/export", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(&teacher, http.MethodGet, quizPath+"/rankings/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = s.do(&teacher, http.MethodPost, quizPath+"/winners", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	s.setNow(afterEnd)

	w = s.do(&student, http.MethodPost, quizPath+"/start", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(&caller{"student-late", "student"}, http.MethodPost, quizPath+"/start", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(&teacher, http.MethodPost, quizPath+"/winners", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(&teacher, http.MethodPost, quizPath+"/winners", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(&teacher, http.MethodGet, "/api/v1/admin/quizzes/"+id+"/attempts", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(&admin, http.MethodGet, "/api/v1/admin/quizzes/"+id+"/attempts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["data"].(map[string]interface{})["total"])

	w = s.do(&teacher, http.MethodDelete, quizPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(&student, http.MethodGet, quizPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListQuizzes(t *testing.T) {
	s := newServer(t, false)
	s.createQuiz()

	w := s.do(&student, http.MethodGet, "/api/v1/quizzes?phase=scheduled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Friday sprint"))

	w = s.do(&student, http.MethodGet, "/api/v1/quizzes?phase=ended", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, strings.Contains(w.Body.String(), "Friday sprint"))

	w = s.do(&student, http.MethodGet, "/api/v1/quizzes?phase=sometime", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrizePreview(t *testing.T) {
	s := newServer(t, false)
	body := quizBody(true)
	body["prizePool"] = 1000
	w := s.do(&teacher, http.MethodPost, "/api/v1/quizzes", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["data"].(map[string]interface{})["id"].(string)

	w = s.do(&student, http.MethodGet, "/api/v1/quizzes/"+id+"/prizes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	payouts := decode(t, w)["data"].(map[string]interface{})["payouts"].([]interface{})
	require.Len(t, payouts, 3)
	assert.EqualValues(t, 500, payouts[0].(map[string]interface{})["amount"])
	assert.EqualValues(t, 300, payouts[1].(map[string]interface{})["amount"])
	assert.EqualValues(t, 200, payouts[2].(map[string]interface{})["amount"])
}
