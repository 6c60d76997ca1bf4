package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/robalobadob/guessage/assets"
	"github.com/robalobadob/guessage/internal/guess"
	"github.com/robalobadob/guessage/internal/history"
	"github.com/robalobadob/guessage/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

// client drives the router through httptest recorders and keeps cookies
// between calls the way a browser would.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T) (*client, store.Store) {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "guess.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, history.Migrate(context.Background(), db, assets.Migrations()))

	mem := store.NewMemoryStore()
	srv := New(Options{JWTSecret: "test-secret", Source: fixedSource(62)}, mem, history.NewStore(db))
	return &client{t: t, h: srv.Handler(), cookies: map[string]*http.Cookie{}}, mem
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(c.t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	c, _ := newTestServer(t)
	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestGuessFlow(t *testing.T) {
	c, _ := newTestServer(t)

	rec := c.do(http.MethodPost, "/guess/new", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[sessionView](t, rec)
	assert.Equal(t, 62, v.Guess)
	assert.Equal(t, -1, v.Lower)
	assert.Equal(t, 125, v.Upper)
	assert.Equal(t, guess.StateSearching, v.State)
	assert.Equal(t, "I'm guessing you are 62 years of age.  Am I correct?", v.Message)
	require.Contains(t, c.cookies, anonCookieName)
	id := v.ID

	v = decode[sessionView](t, c.do(http.MethodPost, "/guess/"+id+"/older", nil))
	assert.Equal(t, 94, v.Guess)
	assert.Equal(t, 62, v.Lower)
	assert.Equal(t, "How about 94 years?", v.Message)

	v = decode[sessionView](t, c.do(http.MethodPost, "/guess/"+id+"/younger", nil))
	assert.Equal(t, 78, v.Guess)
	assert.Equal(t, 94, v.Upper)
	assert.Equal(t, 2, v.Steps)

	v = decode[sessionView](t, c.do(http.MethodPost, "/guess/"+id+"/correct", nil))
	assert.Equal(t, guess.StateConverged, v.State)
	assert.Equal(t, 78, v.Guess)
	assert.Equal(t, "You are 78 years of age!", v.Message)

	rec = c.do(http.MethodPost, "/guess/"+id+"/older", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[struct {
		Error   string      `json:"error"`
		Session sessionView `json:"session"`
	}](t, rec)
	assert.Equal(t, "converged", conflict.Error)
	assert.Equal(t, 78, conflict.Session.Guess)

	rec = c.do(http.MethodGet, "/guess/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, guess.StateConverged, decode[sessionView](t, rec).State)

	sum := decode[history.Summary](t, c.do(http.MethodGet, "/guess/stats", nil))
	assert.Equal(t, history.Summary{Sessions: 1, Converged: 1, AvgSteps: 2}, sum)
}

func TestNewSessionValidation(t *testing.T) {
	c, _ := newTestServer(t)

	rec := c.do(http.MethodPost, "/guess/new", map[string]int{"max": -3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_max"}`, rec.Body.String())

	rec = c.do(http.MethodPost, "/guess/new", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad_json"}`, rec.Body.String())

	rec = c.do(http.MethodPost, "/guess/new", map[string]int{"max": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[sessionView](t, rec)
	assert.Equal(t, 0, v.Guess)
	assert.Equal(t, 0, v.Upper)

	v = decode[sessionView](t, c.do(http.MethodPost, "/guess/"+v.ID+"/older", nil))
	assert.Equal(t, guess.StateConverged, v.State)
	assert.Equal(t, 0, v.Guess)
}

func TestUnknownSession(t *testing.T) {
	c, _ := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/guess/nope"},
		{http.MethodPost, "/guess/nope/older"},
		{http.MethodPost, "/guess/nope/younger"},
		{http.MethodPost, "/guess/nope/correct"},
		{http.MethodGet, "/no/such/route"},
	} {
		rec := c.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String(), tc.path)
	}
}

func TestCloseSession(t *testing.T) {
	c, mem := newTestServer(t)
	v := decode[sessionView](t, c.do(http.MethodPost, "/guess/new", nil))
	require.Equal(t, 1, mem.Len())

	rec := c.do(http.MethodDelete, "/guess/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, mem.Len())
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/guess/"+v.ID, nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	c, _ := newTestServer(t)
	rec := c.do(http.MethodOptions, "/guess/new", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAuthFlow(t *testing.T) {
	c, _ := newTestServer(t)
	creds := map[string]string{"username": "ada_l", "password": "correct horse"}

	rec := c.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Guest session first; it is claimed on signup.
	guest := decode[sessionView](t, c.do(http.MethodPost, "/guess/new", nil))

	rec = c.do(http.MethodPost, "/auth/signup", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, c.cookies, "guess_token")

	rec = c.do(http.MethodPost, "/auth/signup", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)

	me := decode[authUser](t, c.do(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, "ada_l", me.Username)

	// Signed-in session, played to the end.
	v := decode[sessionView](t, c.do(http.MethodPost, "/guess/new", nil))
	c.do(http.MethodPost, "/guess/"+v.ID+"/older", nil)
	c.do(http.MethodPost, "/guess/"+v.ID+"/correct", nil)

	// The claimed guest session counts as played.
	stats := decode[map[string]any](t, c.do(http.MethodGet, "/stats/me", nil))
	assert.EqualValues(t, 2, stats["sessionsPlayed"])
	assert.EqualValues(t, 1, stats["sessionsConverged"])

	rows := decode[[]history.Row](t, c.do(http.MethodGet, "/sessions/mine", nil))
	require.Len(t, rows, 2)
	ids := []string{rows[0].ID, rows[1].ID}
	assert.ElementsMatch(t, []string{guest.ID, v.ID}, ids)

	rec = c.do(http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, c.cookies, "guess_token")
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/stats/me", nil).Code)

	rec = c.do(http.MethodPost, "/auth/login", map[string]string{"username": "ada_l", "password": "wrong horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/auth/login", map[string]string{"username": "ADA_L", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/auth/me", nil).Code)
}

func TestBearerToken(t *testing.T) {
	c, _ := newTestServer(t)
	c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "bearer", "password": "hunter2hunter2"})
	tok := c.cookies["guess_token"].Value

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok+"x")
	rec = httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuestSessionFinishedAfterSignup(t *testing.T) {
	c, _ := newTestServer(t)

	v := decode[sessionView](t, c.do(http.MethodPost, "/guess/new", nil))
	rec := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "late_joiner", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/guess/"+v.ID+"/correct", nil).Code)

	stats := decode[map[string]any](t, c.do(http.MethodGet, "/stats/me", nil))
	assert.EqualValues(t, 1, stats["sessionsPlayed"])
	assert.EqualValues(t, 1, stats["sessionsConverged"])
}

func TestSessionFinishedAfterLogout(t *testing.T) {
	c, _ := newTestServer(t)
	creds := map[string]string{"username": "leaver", "password": "correct horse"}

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/signup", creds).Code)
	v := decode[sessionView](t, c.do(http.MethodPost, "/guess/new", nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/logout", nil).Code)

	c.do(http.MethodPost, "/guess/"+v.ID+"/older", nil)
	v = decode[sessionView](t, c.do(http.MethodPost, "/guess/"+v.ID+"/correct", nil))
	require.Equal(t, guess.StateConverged, v.State)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/login", creds).Code)
	stats := decode[map[string]any](t, c.do(http.MethodGet, "/stats/me", nil))
	assert.EqualValues(t, 1, stats["sessionsPlayed"])
	assert.EqualValues(t, 1, stats["sessionsConverged"])

	rows := decode[[]history.Row](t, c.do(http.MethodGet, "/sessions/mine", nil))
	require.Len(t, rows, 1)
	assert.Equal(t, "converged", rows[0].Status)
	require.NotNil(t, rows[0].FinalGuess)
	assert.Equal(t, 94, *rows[0].FinalGuess)

	sum := decode[history.Summary](t, c.do(http.MethodGet, "/guess/stats", nil))
	assert.Equal(t, 1, sum.Sessions)
	assert.Equal(t, 1, sum.Converged)
}

func TestSignupValidation(t *testing.T) {
	c, _ := newTestServer(t)
	for _, creds := range []map[string]string{
		{"username": "x", "password": "correct horse"},
		{"username": "bad name", "password": "correct horse"},
		{"username": "shorty", "password": "short"},
	} {
		rec := c.do(http.MethodPost, "/auth/signup", creds)
		assert.Equal(t, http.StatusBadRequest, rec.Code, creds["username"])
		assert.JSONEq(t, `{"error":"invalid_signup"}`, rec.Body.String())
	}
}

func TestConfiguredDefaultMax(t *testing.T) {
	db, err := history.Open(filepath.Join(t.TempDir(), "guess.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, history.Migrate(context.Background(), db, assets.Migrations()))

	srv := New(Options{DefaultMax: 7, Source: fixedSource(62)}, store.NewMemoryStore(), history.NewStore(db))
	c := &client{t: t, h: srv.Handler(), cookies: map[string]*http.Cookie{}}

	v := decode[sessionView](t, c.do(http.MethodPost, "/guess/new", nil))
	assert.Equal(t, 7, v.Upper)
	assert.Equal(t, 6, v.Guess)
}
