package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/board/config"
	"github.com/cppla/board/models"
	"github.com/cppla/board/services"
)

var workDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "board-routes")
	if err != nil {
		panic(err)
	}
	workDir = dir
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T, perMinute int) *gin.Engine {
	t.Helper()
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(workDir, "gin.log"),
		UploadDir:          t.TempDir(),
		RateLimitPerMinute: perMinute,
	})

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "board.db")), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	return SetupRouter(db)
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func jsonReq(method, path, token string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func formReq(t *testing.T, method, path, token string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func login(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	w, _ := serve(r, jsonReq(http.MethodPost, "/user/signup", "", gin.H{
		"email": email, "password": "secret1", "name": "Name", "nickname": "nick",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := serve(r, jsonReq(http.MethodPost, "/user/login", "", gin.H{"email": email, "password": "secret1"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func TestSetupRouterPostFlow(t *testing.T) {
	r := setup(t, 600)
	token := login(t, r, "writer@example.com")

	w, env := serve(r, formReq(t, http.MethodPost, "/post", token, map[string]string{
		"post_title":   "First title",
		"post_content": "kept body",
		"images[]":     "https://img.example.com/1.png",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	postPath := fmt.Sprintf("/post/%d", created.Post.ID)

	// title only: content is kept, attachments are replaced by the empty set
	w, _ = serve(r, formReq(t, http.MethodPatch, postPath, token, map[string]string{"post_title": "Second title"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, postPath, nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, postPath, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, env = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	var detail services.PostDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Equal(t, "Second title", detail.Title)
	require.Equal(t, "kept body", detail.Content)
	require.Empty(t, detail.Images)

	other := login(t, r, "other@example.com")
	w, env = serve(r, formReq(t, http.MethodPatch, postPath, other, map[string]string{"post_content": "hijack"}))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, 40302, env.Code)

	w, env = serve(r, httptest.NewRequest(http.MethodGet, "/post?sort=popular", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, env.Code)
}

func TestSetupRouterAmbientRoutes(t *testing.T) {
	r := setup(t, 600)

	w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "board_http_requests_total")

	w, env := serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40400, env.Code)
}

func TestSetupRouterLimitsUserRoutesOnly(t *testing.T) {
	r := setup(t, 2)

	bad := gin.H{"email": "nobody@example.com", "password": "secret1"}
	w, _ := serve(r, jsonReq(http.MethodPost, "/user/login", "", bad))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w, env := serve(r, jsonReq(http.MethodPost, "/user/login", "", bad))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, 42901, env.Code)

	for i := 0; i < 5; i++ {
		w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/post", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
