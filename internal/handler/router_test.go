package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"student-registry/internal/config"
	"student-registry/internal/metrics"
	"student-registry/internal/repository"
	"student-registry/internal/service"
	"student-registry/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Kind    string          `json:"kind"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router     *gin.Engine
	metrics    *metrics.Metrics
	ownerToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	db := testutil.TestDB(t)
	userRepo := repository.NewUserRepo(db)
	creds, err := service.NewCredentialService(userRepo, bcrypt.MinCost)
	require.NoError(t, err)

	m := metrics.New("test")
	audit := service.NewAuditService(repository.NewAuditRepo(db))
	users := service.NewUserService(userRepo, creds, audit, m)
	_, err = users.Bootstrap(context.Background(), "owner", "ownerpass")
	require.NoError(t, err)

	ts := &testServer{
		metrics: m,
		router: NewRouter(Dependencies{
			DB:       db,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			Metrics:  m,
			CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
			Creds:    creds,
			Users:    users,
			Students: service.NewStudentService(repository.NewStudentRepo(db), audit, m),
			Chat:     service.NewChatService(repository.NewChatRepo(db), m),
			Audit:    audit,
		}),
	}
	ts.ownerToken = ts.login(t, "owner", "ownerpass")
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var auth service.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	return auth.Token
}

func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/register", "", gin.H{"username": username, "password": "password1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var auth service.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	return auth.Token
}

func (ts *testServer) registerVIP(t *testing.T, username string) string {
	t.Helper()
	token := ts.register(t, username)
	w, _ := ts.do(t, http.MethodPost, "/users/"+username+"/role", ts.ownerToken, gin.H{"new_role": "vip"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return token
}

type studentDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Major string `json:"major"`
}

func (ts *testServer) createStudent(t *testing.T, token, name string, age int, major string) studentDTO {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/students", token, gin.H{"name": name, "age": age, "major": major})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st studentDTO
	require.NoError(t, json.Unmarshal(env.Data, &st))
	return st
}

func TestRegister_ConflictOnDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	w, env := ts.do(t, http.MethodPost, "/register", "", gin.H{"username": "ALICE", "password": "password2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Kind)
	assert.False(t, env.Success)
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/register", "", gin.H{"username": "a b", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid", env.Kind)
	assert.Contains(t, env.Error, "username")

	w, env = ts.do(t, http.MethodPost, "/register", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "password is required")
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "bob")

	w1, env1 := ts.do(t, http.MethodPost, "/login", "", gin.H{"username": "bob", "password": "wrong-one"})
	w2, env2 := ts.do(t, http.MethodPost, "/login", "", gin.H{"username": "nobody", "password": "wrong-one"})

	assert.Equal(t, http.StatusUnauthorized, w1.Code)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.Equal(t, "unauthenticated", env1.Kind)
	assert.Equal(t, env1.Error, env2.Error)
}

func TestLogin_ReplacesPreviousToken(t *testing.T) {
	ts := newTestServer(t)
	first := ts.register(t, "carol")
	second := ts.login(t, "carol", "password1")

	w, _ := ts.do(t, http.MethodGet, "/me", first, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := ts.do(t, http.MethodGet, "/me", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"carol"`)
}

func TestAuth_MissingOrMalformedHeader(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodGet, "/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", env.Kind)

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w, _ = ts.do(t, http.MethodGet, "/students", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "dora")

	w, _ := ts.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStudents_GuestForbiddenVIPAllowed(t *testing.T) {
	ts := newTestServer(t)
	guest := ts.register(t, "guest")
	vip := ts.registerVIP(t, "vip")

	w, env := ts.do(t, http.MethodPost, "/students", guest, gin.H{"name": "Ann", "age": 20, "major": "CS"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Kind)

	st := ts.createStudent(t, vip, "Ann", 20, "CS")
	path := fmt.Sprintf("/students/%d", st.ID)

	w, _ = ts.do(t, http.MethodPut, path, guest, gin.H{"age": 21})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = ts.do(t, http.MethodDelete, path, guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodGet, path, guest, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodPut, path, vip, gin.H{"age": 21})
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = ts.do(t, http.MethodDelete, path, vip, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Message)

	w, env = ts.do(t, http.MethodGet, path, vip, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)
}

func TestStudents_IDAllocation(t *testing.T) {
	ts := newTestServer(t)

	for i := 1; i <= 3; i++ {
		st := ts.createStudent(t, ts.ownerToken, fmt.Sprintf("S%d", i), 20, "CS")
		assert.Equal(t, uint(i), st.ID)
	}

	w, _ := ts.do(t, http.MethodDelete, "/students/2", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	st := ts.createStudent(t, ts.ownerToken, "New", 19, "Math")
	assert.Equal(t, uint(2), st.ID)

	st = ts.createStudent(t, ts.ownerToken, "Next", 19, "Math")
	assert.Equal(t, uint(4), st.ID)
}

func TestStudents_ListFilters(t *testing.T) {
	ts := newTestServer(t)
	ts.createStudent(t, ts.ownerToken, "A", 20, "CS")
	ts.createStudent(t, ts.ownerToken, "B", 22, "cs")
	ts.createStudent(t, ts.ownerToken, "C", 20, "Art")

	decode := func(env envelope) []studentDTO {
		var body struct {
			Students []studentDTO `json:"students"`
			Count    int          `json:"count"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &body))
		require.Equal(t, body.Count, len(body.Students))
		return body.Students
	}

	w, env := ts.do(t, http.MethodGet, "/students?major=CS", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(env)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)

	w, env = ts.do(t, http.MethodGet, "/students?major=cs&age=20", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode(env)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)

	w, env = ts.do(t, http.MethodGet, "/students", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(env), 3)

	w, _ = ts.do(t, http.MethodGet, "/students?age=old", ts.ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudents_PartialUpdateAndValidation(t *testing.T) {
	ts := newTestServer(t)
	st := ts.createStudent(t, ts.ownerToken, "Ann", 20, "CS")
	path := fmt.Sprintf("/students/%d", st.ID)

	w, env := ts.do(t, http.MethodPut, path, ts.ownerToken, gin.H{"major": "Physics"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated studentDTO
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, studentDTO{ID: st.ID, Name: "Ann", Age: 20, Major: "Physics"}, updated)

	w, _ = ts.do(t, http.MethodPut, path, ts.ownerToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodPut, "/students/99", ts.ownerToken, gin.H{"age": 30})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/students/abc", ts.ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(t, http.MethodGet, "/students/0", ts.ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)
	w, _ = ts.do(t, http.MethodDelete, "/students/0", ts.ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/students", ts.ownerToken, gin.H{"name": "NoAge", "major": "CS"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// zero is a valid age
	zero := ts.createStudent(t, ts.ownerToken, "Baby", 0, "None")
	assert.Equal(t, 0, zero.Age)
}

func TestUsers_OwnerCannotBeAdministered(t *testing.T) {
	ts := newTestServer(t)
	vip := ts.registerVIP(t, "vip")

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/users/owner/suspend", nil},
		{http.MethodDelete, "/users/owner", nil},
		{http.MethodPost, "/users/owner/role", gin.H{"new_role": "guest"}},
	} {
		w, env := ts.do(t, tc.method, tc.path, ts.ownerToken, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "forbidden", env.Kind)

		w, _ = ts.do(t, tc.method, tc.path, vip, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s as vip", tc.method, tc.path)
	}

	w, _ := ts.do(t, http.MethodGet, "/me", ts.ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUsers_RoleChange(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "eve")

	w, env := ts.do(t, http.MethodPost, "/users/eve/role?new_role=vip", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"role":"vip"`)

	w, _ = ts.do(t, http.MethodPost, "/users/eve/role", ts.ownerToken, gin.H{"new_role": "owner"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = ts.do(t, http.MethodPost, "/users/eve/role", ts.ownerToken, gin.H{"new_role": "emperor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid", env.Kind)

	w, _ = ts.do(t, http.MethodPost, "/users/eve/role", ts.ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/users/ghost/role", ts.ownerToken, gin.H{"new_role": "vip"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_RoleChangeChunkedBody(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "kim")

	req := httptest.NewRequest(http.MethodPost, "/users/kim/role", bytes.NewBufferString(`{"new_role":"vip"}`))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.ownerToken)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"vip"`)
}

func TestUsers_SuspendFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "frank")

	w, _ := ts.do(t, http.MethodPost, "/users/frank/suspend", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/chat", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := ts.do(t, http.MethodPost, "/login", "", gin.H{"username": "frank", "password": "password1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Kind)

	w, _ = ts.do(t, http.MethodPost, "/users/frank/unsuspend", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ts.login(t, "frank", "password1")

	w, _ = ts.do(t, http.MethodPost, "/users/nobody/suspend", ts.ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_ListAndDelete(t *testing.T) {
	ts := newTestServer(t)
	guest := ts.register(t, "gail")

	w, _ := ts.do(t, http.MethodGet, "/users", guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := ts.do(t, http.MethodGet, "/users", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"count":2`)

	w, _ = ts.do(t, http.MethodDelete, "/users/gail", ts.ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodDelete, "/users/gail", ts.ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat_CapAndWindow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "hal")

	for i := 1; i <= 205; i++ {
		w, _ := ts.do(t, http.MethodPost, "/chat", token, gin.H{"text": fmt.Sprintf("m%d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := ts.do(t, http.MethodGet, "/chat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []struct {
			Author string `json:"author"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Messages, 100)
	assert.Equal(t, "m106", body.Messages[0].Text)
	assert.Equal(t, "m205", body.Messages[99].Text)
	assert.Equal(t, "hal", body.Messages[0].Author)

	w, _ = ts.do(t, http.MethodPost, "/chat", token, gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAudit_OwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	guest := ts.register(t, "ivy")

	w, _ := ts.do(t, http.MethodGet, "/audit", guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := ts.do(t, http.MethodGet, "/audit?limit=1", ts.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"count":1`)
	assert.Contains(t, string(env.Data), "user_registration")

	w, _ = ts.do(t, http.MethodGet, "/audit?limit=x", ts.ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInfrastructureRoutes(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodOptions, "/students", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	w, env = ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)

	w, _ = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
