package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "nexcell_session", "test-secret", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)
	sess.SetWorker("7", "CASHIER")
	sess.Set("theme", "dark")

	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, r, sess))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "nexcell_session", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	// Replaying the cookie must restore the worker identity.
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookies[0])
	restored, err := sm.Load(ctx, r2)
	require.NoError(t, err)
	require.Equal(t, "7", restored.Worker())
	require.Equal(t, "CASHIER", restored.Role())
	require.Equal(t, "dark", restored.Get("theme"))
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)
	sess.SetWorker("7", "OWNER")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), r, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, r, sess))
	require.False(t, mr.Exists("session:"+sess.ID))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestSessionExpiresWithTTL(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)
	sess.SetWorker("3", "TECHNICIAN")
	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, r, sess))

	mr.FastForward(2 * time.Hour)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(w.Result().Cookies()[0])
	expired, err := sm.Load(ctx, r2)
	require.NoError(t, err)
	require.Empty(t, expired.Worker())
}

func TestCSRFTokenLifecycle(t *testing.T) {
	manager := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess := &Session{ID: "sess-1"}

	token, err := manager.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// A second call returns the same token for the session.
	again, err := manager.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, manager.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, manager.VerifyToken(ctx, sess, "tampered"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, manager.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, manager.VerifyToken(ctx, &Session{ID: "other"}, token), ErrCSRFTokenMissing)
	require.ErrorIs(t, manager.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
}
