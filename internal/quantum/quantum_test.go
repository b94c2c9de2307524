package quantum

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
)

func TestNoOp_SatisfiesManagerHook(t *testing.T) {
	var hook ManagerHook = NoOp{}
	assert.NoError(t, hook.FlushMessageBuffer(context.Background()))
	assert.NoError(t, hook.DisconnectFromServer(context.Background()))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(u.Hostname(), port)
}

func TestClient_FlushMessageBuffer_SucceedsOn2xx(t *testing.T) {
	var hit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.FlushMessageBuffer(context.Background()))
	assert.Equal(t, "/flush", hit)
}

func TestClient_DisconnectFromServer_SucceedsOn2xx(t *testing.T) {
	var hit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.DisconnectFromServer(context.Background()))
	assert.Equal(t, "/disconnect", hit)
}

func TestClient_Flush_WrapsErrorOnPersistentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.FlushMessageBuffer(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, kernelerr.ErrQuantumManagerIO)
}
