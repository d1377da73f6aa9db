package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/middleware"
	redisRepo "github.com/briansimoni/weewoo.study-sub000/internal/repository/redis"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
	"github.com/briansimoni/weewoo.study-sub000/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer - полный HTTP-стек поверх miniredis
type testServer struct {
	router     *gin.Engine
	adminToken string
	userToken  string
}

type testServerOptions struct {
	reportLimit int
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv, err := redisRepo.NewKVStore(client, "test", nil)
	require.NoError(t, err)

	repoOpts := redisRepo.Options{MaxCommitAttempts: 20}
	questionRepo := redisRepo.NewQuestionRepo(kv, repoOpts)
	userRepo := redisRepo.NewUserRepo(kv, repoOpts)
	streakRepo := redisRepo.NewStreakRepo(kv, entity.DefaultStreakWindow(), repoOpts)
	variantRepo := redisRepo.NewProductVariantRepo(kv, repoOpts)

	questionService := service.NewQuestionService(questionRepo, nil, nil)
	answerService := service.NewAnswerService(questionRepo, userRepo, streakRepo, nil)
	userService := service.NewUserService(userRepo, streakRepo, nil)
	productService := service.NewProductService(variantRepo)

	jwtService, err := auth.NewJWTService("test-secret")
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	userToken, err := jwtService.GenerateToken("player", "user", time.Hour)
	require.NoError(t, err)

	routes := Routes{
		Questions: NewQuestionHandler(questionService, answerService, nil),
		Users:     NewUserHandler(userService, nil),
		Products:  NewProductHandler(productService, nil),
		Auth:      middleware.NewAuthMiddleware(jwtService, nil),
	}
	if opts.reportLimit > 0 {
		routes.RateLimiter = middleware.NewRateLimiter(client, nil)
		routes.ReportLimit = middleware.RateLimitConfig{MaxRequests: opts.reportLimit, Window: time.Minute, KeyPrefix: "test:rl:reports"}
		routes.AnswerLimit = middleware.RateLimitConfig{MaxRequests: 1000, Window: time.Minute, KeyPrefix: "test:rl:answers"}
	}

	router := gin.New()
	routes.Register(router)

	return &testServer{router: router, adminToken: adminToken, userToken: userToken}
}

// do выполняет запрос; token == "" - без авторизации
func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, s.adminToken)
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

func spainQuestion() map[string]interface{} {
	return map[string]interface{}{
		"question_text":  "What is the capital of Spain?",
		"choices":        []string{"Madrid", "Lisbon", "Rome"},
		"correct_answer": 0,
		"explanation":    "Madrid has been the capital since 1561.",
		"category":       "Geography",
	}
}

// createQuestion создает вопрос от имени администратора и возвращает его ID
func (s *testServer) createQuestion(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	w := s.admin(http.MethodPost, "/api/questions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return parseJSONResponse(t, w)["id"].(string)
}
