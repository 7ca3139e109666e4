package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"

	"qbank/config"
	"qbank/models"
	"qbank/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	app          *fiber.App
	db           *gorm.DB
	cfg          *config.Config
	teacherToken string
	studentToken string
	subjectID    uint
)

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

func setup() {
	cfg = &config.Config{
		AppEnv:     "test",
		JWTSecret:  "testsecret",
		ServerPort: "8080",
	}

	var err error
	db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	if err := utils.MigrateDB(db); err != nil {
		panic(err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	teacher := models.User{Username: "teacher", Email: "teacher@example.com", PasswordHash: string(hash), Role: models.RoleTeacher}
	db.Create(&teacher)
	teacherToken, _ = utils.GenerateJWTToken(&teacher, cfg)

	app = fiber.New()
	SetupRoutes(app, db, cfg)
}

// request performs a JSON request against the test app and decodes the
// envelope into a map.
func request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func data(result map[string]interface{}) map[string]interface{} {
	d, _ := result["data"].(map[string]interface{})
	return d
}

func asID(v interface{}) uint {
	f, _ := v.(float64)
	return uint(f)
}

func TestHealth(t *testing.T) {
	status, result := request(t, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["success"])
}

func TestAuthFlow(t *testing.T) {
	status, result := request(t, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	token, _ := data(result)["token"].(string)
	require.NotEmpty(t, token)
	studentToken = token

	user, _ := data(result)["user"].(map[string]interface{})
	assert.Equal(t, "student", user["role"], "self-registration only makes students")

	// Duplicate username
	status, _ = request(t, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret1",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	// Privileged self-registration is rejected
	status, _ = request(t, "POST", "/api/auth/register", "", fiber.Map{
		"username": "eve",
		"email":    "eve@example.com",
		"password": "secret1",
		"role":     "admin",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	// Login by email works too
	status, result = request(t, "POST", "/api/auth/login", "", fiber.Map{
		"username": "alice@example.com",
		"password": "secret1",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, data(result)["token"])

	status, _ = request(t, "POST", "/api/auth/login", "", fiber.Map{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, result = request(t, "GET", "/api/auth/me", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	me, _ := data(result)["user"].(map[string]interface{})
	assert.Equal(t, "alice", me["username"])
}

func TestQuestionBankAndExamFlow(t *testing.T) {
	require.NotEmpty(t, studentToken, "auth flow runs first")

	// Students cannot create topics
	status, _ := request(t, "POST", "/api/questions/topics", studentToken, fiber.Map{"name": "Nope"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, result := request(t, "POST", "/api/questions/topics", teacherToken, fiber.Map{"name": "Math"})
	require.Equal(t, fiber.StatusCreated, status)
	subjectID = asID(data(result)["topic"].(map[string]interface{})["id"])

	status, result = request(t, "POST", "/api/questions/topics", teacherToken, fiber.Map{
		"name":     "Algebra",
		"parentId": subjectID,
	})
	require.Equal(t, fiber.StatusCreated, status)
	chapterID := asID(data(result)["topic"].(map[string]interface{})["id"])

	options := []fiber.Map{
		{"id": "A", "content": "4"},
		{"id": "B", "content": "5"},
		{"id": "C", "content": "6"},
		{"id": "D", "content": "7"},
	}

	// Questions may not hang off subjects
	status, _ = request(t, "POST", "/api/questions", teacherToken, fiber.Map{
		"topicId": subjectID,
		"type":    "single",
		"content": "2+2?",
		"options": options,
		"answer":  "A",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Answer must reference an existing option
	status, _ = request(t, "POST", "/api/questions", teacherToken, fiber.Map{
		"topicId": chapterID,
		"type":    "single",
		"content": "2+2?",
		"options": options,
		"answer":  "Z",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = request(t, "POST", "/api/questions", teacherToken, fiber.Map{
		"topicId": chapterID,
		"type":    "single",
		"content": "2+2?",
		"options": options,
		"answer":  "A",
		"score":   5,
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = request(t, "POST", "/api/questions", teacherToken, fiber.Map{
		"topicId": chapterID,
		"type":    "multiple",
		"content": "Even numbers?",
		"options": options,
		"answer":  []string{"A", "C"},
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, result = request(t, "GET", fmt.Sprintf("/api/questions?topicId=%d", chapterID), studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), data(result)["total"])

	// Exam drawing one question of each type from the subject
	status, result = request(t, "POST", "/api/exams", teacherToken, fiber.Map{
		"name":     "Midterm",
		"duration": 60,
		"rules": []fiber.Map{{
			"topicIds": []uint{subjectID},
			"typeSpecs": []fiber.Map{
				{"type": "single", "count": 1, "score": 5},
				{"type": "multiple", "count": 1, "score": 5},
			},
		}},
	})
	require.Equal(t, fiber.StatusCreated, status)
	exam := data(result)["exam"].(map[string]interface{})
	examID := asID(exam["id"])
	assert.Equal(t, "draft", exam["status"])

	// Drafts cannot be started
	status, _ = request(t, "POST", fmt.Sprintf("/api/exams/%d/start", examID), studentToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, result = request(t, "GET", fmt.Sprintf("/api/exams/%d/preview", examID), teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), data(result)["totalRequired"])

	status, _ = request(t, "POST", fmt.Sprintf("/api/exams/%d/publish", examID), teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, result = request(t, "POST", fmt.Sprintf("/api/exams/%d/start", examID), studentToken, nil)
	require.Equal(t, fiber.StatusCreated, status)
	submissionID := asID(data(result)["submission"].(map[string]interface{})["id"])

	// First question is the single-choice one, answer withheld
	status, result = request(t, "GET",
		fmt.Sprintf("/api/exams/submission/%d/question/1", submissionID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	q1 := data(result)["question"].(map[string]interface{})
	assert.Equal(t, "single", q1["type"])
	assert.NotContains(t, q1, "answer")
	assert.Equal(t, float64(2), data(result)["totalQuestions"])

	status, result = request(t, "GET",
		fmt.Sprintf("/api/exams/submission/%d/question/2", submissionID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	q2 := data(result)["question"].(map[string]interface{})

	status, _ = request(t, "POST",
		fmt.Sprintf("/api/exams/submission/%d/answer", submissionID), studentToken, fiber.Map{
			"questionId": asID(q1["id"]),
			"answer":     "A",
		})
	require.Equal(t, fiber.StatusOK, status)

	status, result = request(t, "POST",
		fmt.Sprintf("/api/exams/submission/%d/answer", submissionID), studentToken, fiber.Map{
			"questionId": asID(q2["id"]),
			"answer":     []string{"C", "A"},
			"completed":  true,
		})
	require.Equal(t, fiber.StatusOK, status)
	sub := data(result)["submission"].(map[string]interface{})
	assert.Equal(t, "completed", sub["status"])
	assert.Equal(t, float64(10), sub["score"])

	status, result = request(t, "GET",
		fmt.Sprintf("/api/exams/submission/%d/result", submissionID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(10), data(result)["totalScore"])
	assert.Equal(t, float64(10), data(result)["maxScore"])

	// History shows the finished attempt
	status, result = request(t, "GET", "/api/exams/history", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), data(result)["total"])

	// A teacher cannot read someone else's submission
	status, _ = request(t, "GET",
		fmt.Sprintf("/api/exams/submission/%d/result", submissionID), teacherToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPracticeAndWrongbookFlow(t *testing.T) {
	require.NotEmpty(t, studentToken, "auth flow runs first")
	require.NotZero(t, subjectID, "question bank flow runs first")

	status, result := request(t, "POST", "/api/practice/start", studentToken, fiber.Map{
		"topicIds":      []uint{subjectID},
		"questionCount": 2,
	})
	require.Equal(t, fiber.StatusCreated, status)
	sessionID := asID(data(result)["session"].(map[string]interface{})["id"])

	status, result = request(t, "GET",
		fmt.Sprintf("/api/practice/question/%d", sessionID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	q := data(result)["question"].(map[string]interface{})
	assert.NotContains(t, q, "answer")

	// A deliberately wrong answer lands in the wrongbook
	status, result = request(t, "POST", "/api/practice/submit", studentToken, fiber.Map{
		"sessionId": sessionID,
		"answers": []fiber.Map{
			{"questionId": asID(q["id"]), "answer": "B"},
		},
		"completed": true,
	})
	require.Equal(t, fiber.StatusOK, status)
	session := data(result)["session"].(map[string]interface{})
	assert.Equal(t, "completed", session["status"])
	assert.Equal(t, float64(0), session["correctCount"])

	status, result = request(t, "GET",
		fmt.Sprintf("/api/practice/result/%d", sessionID), studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	results, _ := data(result)["results"].([]interface{})
	assert.Len(t, results, 1)

	status, result = request(t, "GET", "/api/users/wrongbook", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), data(result)["total"])

	status, _ = request(t, "PUT",
		fmt.Sprintf("/api/users/wrongbook/%d/master", asID(q["id"])), studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, result = request(t, "GET", "/api/users/profile", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	stats := data(result)["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["wrongQuestions"])
	assert.Equal(t, float64(1), stats["mastered"])
}
