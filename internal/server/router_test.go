package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"choco-chat/internal/config"
	"choco-chat/internal/database"
	"choco-chat/internal/model"
	"choco-chat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProvider struct {
	reply string
	label string
	err   error
	calls int
}

func (p *stubProvider) Generate(ctx context.Context, prompt, version string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *stubProvider) Label(version string) string { return p.label }

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	choco  *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	choco := &stubProvider{reply: "hi there, how can I help?", label: "Choco AI (Gemini)"}
	providers := map[service.ModelChoice]service.Provider{
		service.ModelChoco:   choco,
		service.ModelGemini:  &stubProvider{reply: "gemini says hi", label: "Gemini (test)"},
		service.ModelChatGPT: &stubProvider{reply: "gpt says hi", label: "ChatGPT (test)"},
	}

	cfg := &config.Config{Auth: config.AuthConfig{SecretKey: "test-secret"}}
	return &testEnv{router: New(cfg, db, providers), db: db, choco: choco}
}

func (e *testEnv) do(req *http.Request, cookie string) *httptest.ResponseRecorder {
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(path string, form url.Values, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookie)
}

func (e *testEnv) postJSON(path string, body any, cookie string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, cookie)
}

func (e *testEnv) register(t *testing.T, username, password string) {
	t.Helper()
	rec := e.postForm("/register", url.Values{"username": {username}, "password": {password}}, "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "/login")
}

// login 返回后续请求用的会话 cookie
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.postForm("/login", url.Values{"username": {username}, "password": {password}}, "")
	require.Equal(t, http.StatusFound, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatalf("login did not set session cookie, redirected to %s", rec.Header().Get("Location"))
	return ""
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")

	rec := e.postForm("/register", url.Values{"username": {"alice"}, "password": {"pw2"}}, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/register")

	var count int64
	e.db.Model(&model.User{}).Where("username = ?", "alice").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRegisterEmptyFields(t *testing.T) {
	e := newTestEnv(t)
	rec := e.postForm("/register", url.Values{"username": {""}, "password": {""}}, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/register")

	var count int64
	e.db.Model(&model.User{}).Count(&count)
	assert.EqualValues(t, 1, count) // only the seeded admin
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")

	rec := e.postForm("/login", url.Values{"username": {"alice"}, "password": {"nope"}}, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, "session", c.Name)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/chat", nil), "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")

	rec = e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatCreatesHistory(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello", Model: "choco"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi there, how can I help?", resp.Response)
	assert.Equal(t, "Choco AI (Gemini)", resp.ModelUsed)
	assert.NotZero(t, resp.ChatID)

	var rec2 model.ChatHistory
	require.NoError(t, e.db.First(&rec2, resp.ChatID).Error)
	var turns []model.Turn
	require.NoError(t, json.Unmarshal([]byte(rec2.Conversation), &turns))
	require.Len(t, turns, 2)
	assert.Equal(t, model.Turn{Role: "user", Content: "hello"}, turns[0])
	assert.Equal(t, model.Turn{Role: "assistant", Content: "hi there, how can I help?"}, turns[1])
}

func TestChatAppendsClientHistory(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	prior := []model.Turn{{Role: "user", Content: "first"}, {Role: "assistant", Content: "reply"}}
	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "second", Model: "choco", History: prior}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var row model.ChatHistory
	require.NoError(t, e.db.First(&row, resp.ChatID).Error)
	var turns []model.Turn
	require.NoError(t, json.Unmarshal([]byte(row.Conversation), &turns))
	require.Len(t, turns, 4)
	assert.Equal(t, "second", turns[2].Content)
}

func TestCustomQAOverride(t *testing.T) {
	e := newTestEnv(t)
	adminCookie := e.login(t, "admin", "admin")

	rec := e.postForm("/admin/qna/add", url.Values{"question": {"refund policy"}, "answer": {"30 days"}}, adminCookie)
	require.Equal(t, http.StatusFound, rec.Code)

	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	rec = e.postJSON("/api/chat", model.ChatRequest{Prompt: "what is your refund policy please", Model: "choco"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "30 days", resp.Response)
	assert.Equal(t, "Choco AI (Custom)", resp.ModelUsed)
	assert.Zero(t, e.choco.calls, "external model must not be called on an override hit")
}

func TestInvalidModel(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello", Model: "llama"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid model")
}

func TestAIFailureIsGeneric(t *testing.T) {
	e := newTestEnv(t)
	e.choco.err = errors.New("quota exceeded: secret-internal-detail")

	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello", Model: "choco"}, cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-internal-detail")
}

func TestHistoryOwnership(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	e.register(t, "bob", "pw2")
	alice := e.login(t, "alice", "pw1")
	bob := e.login(t, "bob", "pw2")

	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello", Model: "choco"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	path := fmt.Sprintf("/api/chat/history/%d", resp.ChatID)
	rec = e.do(httptest.NewRequest(http.MethodGet, path, nil), bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hello")

	rec = e.postJSON(fmt.Sprintf("/api/chat/delete/%d", resp.ChatID), nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, path, nil), alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")

	rec = e.postJSON(fmt.Sprintf("/api/chat/delete/%d", resp.ChatID), nil, alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "success")
}

func TestChatListTruncatesTitles(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	long := strings.Repeat("x", 80)
	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: long, Model: "choco"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/chat", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		History   []model.ChatListItem `json:"history"`
		UserLevel string               `json:"user_level"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.History, 1)
	assert.Equal(t, strings.Repeat("x", 50)+"...", page.History[0].Title)
	assert.Equal(t, "Bronze", page.UserLevel)
}

func TestFavoriteToggle(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	e.register(t, "bob", "pw2")
	alice := e.login(t, "alice", "pw1")
	bob := e.login(t, "bob", "pw2")

	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello", Model: "choco"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	path := fmt.Sprintf("/api/chat/favorite/%d", resp.ChatID)
	rec = e.postJSON(path, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.postJSON(path, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_favorite":true`)

	rec = e.postJSON(path, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_favorite":false`)
}

func TestEmojiFeedback(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	rec := e.postJSON("/api/feedback/emoji", model.EmojiFeedbackRequest{ChatID: 7, Emoji: "👍", ResponseText: "hi there"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var r model.EmojiReaction
	require.NoError(t, e.db.First(&r).Error)
	assert.Equal(t, 7, r.ChatID)
	assert.Equal(t, "👍", r.Reaction)
	assert.Equal(t, "hi there", r.ResponseText)
}

func TestAdminGrantRevoke(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "bob", "pw2")
	bobCookie := e.login(t, "bob", "pw2")
	adminCookie := e.login(t, "admin", "admin")

	// 未授权时跳回首页并带提示
	rec := e.do(httptest.NewRequest(http.MethodGet, "/admin", nil), bobCookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "notice=")

	var bob model.User
	require.NoError(t, e.db.Where("username = ?", "bob").First(&bob).Error)

	rec = e.postForm(fmt.Sprintf("/admin/user/grant/%d", bob.ID), nil, adminCookie)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin", nil), bobCookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.postForm(fmt.Sprintf("/admin/user/revoke/%d", bob.ID), nil, adminCookie)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin", nil), bobCookie)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestSelfRevokeIsNoop(t *testing.T) {
	e := newTestEnv(t)
	adminCookie := e.login(t, "admin", "admin")

	var admin model.User
	require.NoError(t, e.db.Where("username = ?", "admin").First(&admin).Error)

	rec := e.postForm(fmt.Sprintf("/admin/user/revoke/%d", admin.ID), nil, adminCookie)
	assert.Equal(t, http.StatusFound, rec.Code)

	require.NoError(t, e.db.First(&admin, admin.ID).Error)
	assert.True(t, admin.IsAdmin)
}

func TestAdminDashboardAndUsers(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	alice := e.login(t, "alice", "pw1")
	adminCookie := e.login(t, "admin", "admin")

	rec := e.postJSON("/api/chat", model.ChatRequest{Prompt: "hello", Model: "choco"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.postJSON("/api/feedback/emoji", model.EmojiFeedbackRequest{ChatID: 1, Emoji: "🔥", ResponseText: "hi"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin", nil), adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var d model.AdminDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.EqualValues(t, 2, d.TotalUsers)
	assert.EqualValues(t, 1, d.TotalChats)
	require.Len(t, d.EmojiReactions, 1)
	assert.Equal(t, "🔥", d.EmojiReactions[0].Reaction)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin/users", nil), adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAdminSetLevel(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	adminCookie := e.login(t, "admin", "admin")

	var alice model.User
	require.NoError(t, e.db.Where("username = ?", "alice").First(&alice).Error)

	rec := e.postForm(fmt.Sprintf("/admin/user/level/%d", alice.ID), url.Values{"level": {"Royal"}}, adminCookie)
	require.Equal(t, http.StatusFound, rec.Code)

	require.NoError(t, e.db.First(&alice, alice.ID).Error)
	assert.Equal(t, "Royal", alice.Level)
}

func TestQnAValidationAndDelete(t *testing.T) {
	e := newTestEnv(t)
	adminCookie := e.login(t, "admin", "admin")

	rec := e.postForm("/admin/qna/add", url.Values{"question": {""}, "answer": {""}}, adminCookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	var count int64
	e.db.Model(&model.CustomQA{}).Count(&count)
	assert.EqualValues(t, 0, count)

	rec = e.postForm("/admin/qna/add", url.Values{"question": {"hours"}, "answer": {"9 to 5"}}, adminCookie)
	require.Equal(t, http.StatusFound, rec.Code)

	var q model.CustomQA
	require.NoError(t, e.db.First(&q).Error)
	rec = e.postForm(fmt.Sprintf("/admin/qna/delete/%d", q.ID), nil, adminCookie)
	require.Equal(t, http.StatusFound, rec.Code)
	e.db.Model(&model.CustomQA{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestLogoutClearsSession(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "pw1")
	cookie := e.login(t, "alice", "pw1")

	rec := e.do(httptest.NewRequest(http.MethodGet, "/logout", nil), cookie)
	assert.Equal(t, http.StatusFound, rec.Code)

	// 空 cookie 再访问受保护页面应被拒
	rec = e.do(httptest.NewRequest(http.MethodGet, "/chat", nil), "session=")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
}
