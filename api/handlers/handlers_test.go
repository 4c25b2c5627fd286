package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/room-relay/backend/internal/auth"
	"github.com/room-relay/backend/internal/db"
	"github.com/room-relay/backend/internal/presence"
	"github.com/room-relay/backend/internal/repository"
	"github.com/room-relay/backend/internal/session"
	"github.com/room-relay/backend/internal/storage"
	"github.com/room-relay/backend/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router     *gin.Engine
	db         *sql.DB
	chat       *repository.ChatRepository
	recordings *repository.RecordingRepository
	blobs      *storage.LocalStore
	presence   *presence.MemoryRegistry
	sessions   *session.Manager
	jwt        *auth.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	testDB, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	blobs, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	s := &testServer{
		db:         testDB,
		chat:       repository.NewChatRepository(testDB),
		recordings: repository.NewRecordingRepository(testDB),
		blobs:      blobs,
		presence:   presence.NewMemoryRegistry(),
		jwt:        auth.NewJWTManager(auth.JWTConfig{SecretKey: "test-secret", Issuer: "room-relay"}),
	}
	s.sessions = session.NewManager(session.Deps{
		Hub:      ws.NewRoomHub(),
		Presence: s.presence,
		Store:    s.chat,
	})
	t.Cleanup(func() { s.sessions.Close() })

	r := gin.New()
	r.Use(auth.Middleware(s.jwt))

	NewChatHandler(s.sessions, ws.NewOriginChecker([]string{"*"}), 64*1024).RegisterRoutes(r.Group("/ws"))

	api := r.Group("/api")
	NewMediaHandler(blobs, s.chat).RegisterRoutes(api)
	NewRecordingHandler(blobs, s.recordings).RegisterRoutes(api)
	NewUploadHandler(storage.NewChunkAssembler(blobs, "uploads")).RegisterRoutes(api)
	NewRoomHandler(s.chat, s.presence, 50).RegisterRoutes(api.Group("", auth.RequireIdentity()))

	s.router = r
	return s
}

func (s *testServer) token(t *testing.T, username string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(username)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func getRequest(target, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type formFile struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error.Code
}
