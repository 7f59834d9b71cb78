package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inboxsweep/internal/auth"
	"inboxsweep/internal/gmail"
	"inboxsweep/internal/model"
	"inboxsweep/internal/ratelimit"

	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func (m *memSessions) SaveSession(_ context.Context, sess model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = sess
	return nil
}

func (m *memSessions) GetSession(_ context.Context, userID string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *memSessions) DeleteSession(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// sessionSource hands out the mailbox only to users with a stored session.
type sessionSource struct {
	sessions *memSessions
	mailbox  gmail.Mailbox
}

func (s sessionSource) Mailbox(ctx context.Context, userID string) (gmail.Mailbox, error) {
	sess, _ := s.sessions.GetSession(ctx, userID)
	if sess == nil {
		return nil, gmail.ErrCredentialsMissing
	}
	return s.mailbox, nil
}

type stubMailbox struct {
	messages map[string]*gmailv1.Message

	mu        sync.Mutex
	searchErr error
	modified  []string
}

func (m *stubMailbox) failSearch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchErr = err
}

func (m *stubMailbox) modifiedThreads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.modified...)
}

func (m *stubMailbox) SearchMessages(context.Context, string, int64, string) (gmail.SearchResult, error) {
	m.mu.Lock()
	err := m.searchErr
	m.mu.Unlock()
	if err != nil {
		return gmail.SearchResult{}, err
	}
	ids := make([]string, 0, len(m.messages))
	for id := range m.messages {
		ids = append(ids, id)
	}
	return gmail.SearchResult{MessageIDs: ids, ResultSizeEstimate: int64(len(ids))}, nil
}

func (m *stubMailbox) GetMessageFull(_ context.Context, id string) (*gmailv1.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound}
	}
	return msg, nil
}

func (m *stubMailbox) GetMessageMetadata(ctx context.Context, id string) (*gmailv1.Message, error) {
	return m.GetMessageFull(ctx, id)
}

func (m *stubMailbox) ModifyThreadLabels(_ context.Context, threadID string, _, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modified = append(m.modified, threadID)
	return nil
}

func (m *stubMailbox) LabelMessagesTotal(context.Context, string) (int64, error) {
	return 42, nil
}

type stubLogin struct{}

func (stubLogin) AuthURL() string { return "https://accounts.example.com/auth" }

func (stubLogin) Exchange(_ context.Context, code string) (model.Session, error) {
	if code != "good-code" {
		return model.Session{}, errors.New("bad code")
	}
	return model.Session{
		UserID:    "u1",
		Email:     "ann@example.com",
		Name:      "Ann",
		Token:     &oauth2.Token{AccessToken: "at", RefreshToken: "rt"},
		LoginTime: time.Now(),
	}, nil
}

type testServer struct {
	srv      *httptest.Server
	sessions *memSessions
	mailbox  *stubMailbox
	tokens   *auth.Tokens
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	sessions := &memSessions{sessions: map[string]model.Session{}}
	mailbox := &stubMailbox{messages: map[string]*gmailv1.Message{
		"m1": {
			Id:           "m1",
			ThreadId:     "t1",
			InternalDate: 1704067200000,
			Payload: &gmailv1.MessagePart{
				MimeType: "text/html",
				Headers: []*gmailv1.MessagePartHeader{
					{Name: "From", Value: "News <news@example.com>"},
					{Name: "Subject", Value: "Weekly"},
					{Name: "List-Unsubscribe", Value: "<https://example.com/u?id=1>"},
				},
				Body: &gmailv1.MessagePartBody{
					Data: base64.URLEncoding.EncodeToString([]byte("<html><p>Hello</p></html>")),
				},
			},
		},
	}}
	tokens := auth.NewTokens("test-secret", time.Hour)
	sweeper := gmail.NewSweeper(sessionSource{sessions: sessions, mailbox: mailbox}, 4, nil)
	h := New(sessions, sweeper, stubLogin{}, tokens, ratelimit.NewMemory(),
		Options{AllowedOrigins: []string{"http://localhost:5173"}, RateLimit: rateLimit, RateWindow: time.Minute}, nil)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, sessions: sessions, mailbox: mailbox, tokens: tokens}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/auth/google/callback", "", `{"code":"good-code"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func TestHealthAndAuthURL(t *testing.T) {
	ts := newTestServer(t, 10)

	resp, _ := ts.do(t, http.MethodGet, "/api/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
	resp, body := ts.do(t, http.MethodGet, "/api/auth/google", "", "")
	if resp.StatusCode != http.StatusOK || body["authUrl"] != "https://accounts.example.com/auth" {
		t.Fatalf("auth url got %d %v", resp.StatusCode, body)
	}
}

func TestLoginFlow(t *testing.T) {
	ts := newTestServer(t, 10)

	resp, _ := ts.do(t, http.MethodPost, "/api/auth/google/callback", "", `{"code":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty code status %d", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodPost, "/api/auth/google/callback", "", `{"code":"nope"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad code status %d", resp.StatusCode)
	}

	token := ts.login(t)
	resp, body := ts.do(t, http.MethodGet, "/api/auth/me", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status %d", resp.StatusCode)
	}
	user, _ := body["user"].(map[string]interface{})
	if user["email"] != "ann@example.com" || user["id"] != "u1" {
		t.Fatalf("me got %v", body)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/auth/logout", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", resp.StatusCode)
	}
	resp, body = ts.do(t, http.MethodGet, "/api/auth/me", token, "")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Session not found. Please log in again." {
		t.Fatalf("me after logout got %d %v", resp.StatusCode, body)
	}
}

func TestBearerRequired(t *testing.T) {
	ts := newTestServer(t, 10)

	resp, _ := ts.do(t, http.MethodGet, "/api/gmail/stats", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status %d", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodGet, "/api/gmail/stats", "garbage", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad token status %d", resp.StatusCode)
	}
}

func TestUnsubscribeEmails(t *testing.T) {
	ts := newTestServer(t, 10)
	token := ts.login(t)

	resp, body := ts.do(t, http.MethodGet, "/api/gmail/unsubscribe-emails?page=1&limit=10", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	emails, _ := body["emails"].([]interface{})
	if len(emails) != 1 {
		t.Fatalf("emails got %v", body)
	}
	first := emails[0].(map[string]interface{})
	if first["sender"] != "News <news@example.com>" || first["date"] != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("email got %v", first)
	}
	if body["nextPageToken"] != nil {
		t.Fatalf("nextPageToken should be null, got %v", body["nextPageToken"])
	}

	for _, q := range []string{"page=0", "page=x", "limit=-1"} {
		resp, _ = ts.do(t, http.MethodGet, "/api/gmail/unsubscribe-emails?"+q, token, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, resp.StatusCode)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, 10)
	token := ts.login(t)

	ts.mailbox.failSearch(&googleapi.Error{Code: http.StatusUnauthorized})
	resp, body := ts.do(t, http.MethodGet, "/api/gmail/unsubscribe-emails", token, "")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Gmail access token expired. Please re-authenticate." {
		t.Fatalf("auth expired got %d %v", resp.StatusCode, body)
	}

	ts.mailbox.failSearch(&googleapi.Error{Code: http.StatusInternalServerError})
	resp, _ = ts.do(t, http.MethodGet, "/api/gmail/unsubscribe-emails", token, "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("upstream status %d", resp.StatusCode)
	}

	ts.sessions.DeleteSession(context.Background(), "u1")
	resp, body = ts.do(t, http.MethodGet, "/api/gmail/stats", token, "")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Session not found. Please log in again." {
		t.Fatalf("missing session got %d %v", resp.StatusCode, body)
	}
}

func TestStatsAndDetail(t *testing.T) {
	ts := newTestServer(t, 10)
	token := ts.login(t)

	resp, body := ts.do(t, http.MethodGet, "/api/gmail/stats", token, "")
	if resp.StatusCode != http.StatusOK || body["totalInboxEmails"] != float64(42) {
		t.Fatalf("stats got %d %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/gmail/email/m1", token, "")
	if resp.StatusCode != http.StatusOK || body["text"] != "Hello" || body["subject"] != "Weekly" {
		t.Fatalf("detail got %d %v", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/gmail/email/missing", token, "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("missing email status %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, 1)
	token := ts.login(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/gmail/stats", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status %d", resp.StatusCode)
	}
	resp, body := ts.do(t, http.MethodGet, "/api/gmail/stats", token, "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request got %d %v", resp.StatusCode, body)
	}
}

func TestMarkUnsubscribed(t *testing.T) {
	ts := newTestServer(t, 10)
	token := ts.login(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/gmail/mark-unsubscribed", token, `{"emailId":"m1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing url status %d", resp.StatusCode)
	}

	resp, body := ts.do(t, http.MethodPost, "/api/gmail/mark-unsubscribed", token,
		`{"emailId":"m1","unsubscribeUrl":"https://example.com/u?id=1","shouldArchive":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true || body["archived"] != true || body["actionId"] == "" {
		t.Fatalf("result got %v", body)
	}
	if got := ts.mailbox.modifiedThreads(); len(got) != 1 || got[0] != "t1" {
		t.Fatalf("modified threads got %v", got)
	}
}
