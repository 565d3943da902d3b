package remotesim

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (k *memKV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.m[key], nil
}

func (k *memKV) Set(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *memKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

func newTokens() *remote.TokenStore {
	return remote.NewTokenStore(&memKV{m: map[string][]byte{}})
}

type httpEnv struct {
	backend *Backend
	issuer  *Issuer
	server  *httptest.Server
	tokens  *remote.TokenStore
	client  *remote.HTTPClient
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()

	e := &httpEnv{
		backend: NewBackend(2, "", nil),
		issuer:  NewIssuer("test-secret", time.Hour, time.Hour),
		tokens:  newTokens(),
	}
	e.server = httptest.NewServer(NewHTTPHandler("/api", e.backend, e.issuer, nil))
	t.Cleanup(e.server.Close)
	e.backend.SetFileURL(e.server.URL + "/api/files/")

	c, err := remote.NewHTTPClient(e.server.URL+"/api", e.server.Client(), remote.Options{Tokens: e.tokens})
	require.NoError(t, err)
	e.client = c
	return e
}

func (e *httpEnv) login(t *testing.T, user string) remote.Tokens {
	t.Helper()
	pair, err := e.issuer.Login(user)
	require.NoError(t, err)
	require.NoError(t, e.tokens.Save(context.Background(), pair))
	return pair
}

// newPlainServer serves b without authentication and returns its URL.
func newPlainServer(t *testing.T, b *Backend) string {
	t.Helper()
	srv := httptest.NewServer(NewHTTPHandler("/api", b, nil, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}
