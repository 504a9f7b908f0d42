package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncer(t *testing.T, handler http.HandlerFunc) *HTTPSyncer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPSyncer(Config{
		BaseURL:   srv.URL,
		AccountID: "acct-1",
		Instance:  "brand-rag",
		APIToken:  "tok-1",
	})
}

func TestSync(t *testing.T) {
	var gotPath, gotAuth string
	s := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPatch, r.Method)
		w.Write([]byte(`{"success":true}`))
	})

	require.NoError(t, s.Sync(context.Background(), "b1"))
	assert.Equal(t, "/accounts/acct-1/autorag/rags/brand-rag/sync", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestSyncNonSuccessStatus(t *testing.T) {
	s := newTestSyncer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	err := s.Sync(context.Background(), "b1")
	assert.ErrorContains(t, err, "403")
}

func TestSyncReportedFailure(t *testing.T) {
	s := newTestSyncer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})
	err := s.Sync(context.Background(), "b1")
	assert.ErrorContains(t, err, "sync reported failure")
}

func TestNoopSyncer(t *testing.T) {
	assert.NoError(t, NoopSyncer{}.Sync(context.Background(), "b1"))
}
