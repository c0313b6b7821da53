// Package testserver runs the full HTTP stack in-process for end-to-end tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rpggio/proofchain/internal/config"
	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/domain/stats"
	"github.com/rpggio/proofchain/internal/mcp"
	"github.com/rpggio/proofchain/internal/memstore"
	"github.com/rpggio/proofchain/internal/repository"
	"github.com/rpggio/proofchain/internal/sqlite"
	"github.com/rpggio/proofchain/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	Ledger *project.Service

	addKey func(ctx context.Context, hash, identity string) error
	nextID int
}

// New starts a server backed by the given store driver with API key auth.
func New(t *testing.T, driver string) *TestServer {
	t.Helper()

	ts := &TestServer{}
	var (
		ledgerRepo project.Repository
		eventRepo  event.Repository
		keys       transport.KeyStore
	)

	switch driver {
	case config.DriverSQLite:
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
		db, err := sqlite.New(dsn)
		require.NoError(t, err)
		require.NoError(t, db.RunMigrations())
		t.Cleanup(func() { _ = db.Close() })

		apiKeys := sqlite.NewAPIKeyRepository(db)
		ledgerRepo = sqlite.NewLedgerRepository(db)
		eventRepo = sqlite.NewEventRepository(db)
		keys = apiKeys
		ts.addKey = func(ctx context.Context, hash, identity string) error {
			return apiKeys.Create(ctx, hash, identity, "test")
		}
	case config.DriverMemory:
		store := memstore.New()
		mapKeys := &keyMap{keys: make(map[string]string)}
		ledgerRepo = store
		eventRepo = store.Events()
		keys = mapKeys
		ts.addKey = mapKeys.add
	default:
		t.Fatalf("unknown driver %q", driver)
	}

	ts.Ledger = project.NewService(ledgerRepo, nil, nil)
	handler := mcp.NewHandler(ts.Ledger, stats.NewService(ts.Ledger), event.NewService(eventRepo, nil))
	router := transport.NewServer(handler, transport.AuthMiddleware(transport.NewAPIKeyResolver(keys)))
	ts.Server = httptest.NewServer(router)
	t.Cleanup(ts.Server.Close)

	return ts
}

// Token provisions an API key for identity and returns the bearer token.
func (ts *TestServer) Token(t *testing.T, identity string) string {
	t.Helper()
	ts.nextID++
	token := fmt.Sprintf("token-%d-%s", ts.nextID, identity)
	require.NoError(t, ts.addKey(context.Background(), transport.HashToken(token), identity))
	return token
}

// Call posts one JSON-RPC request and decodes the result into out when
// out is non-nil. A JSON-RPC error is returned as *transport.Error.
func (ts *TestServer) Call(t *testing.T, token, method string, params, out any) *transport.Error {
	t.Helper()

	rawParams, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(transport.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      1,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Result json.RawMessage  `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	if decoded.Error != nil {
		return decoded.Error
	}
	if out != nil {
		require.NoError(t, json.Unmarshal(decoded.Result, out))
	}
	return nil
}

// ErrorCode extracts the application code from a JSON-RPC error.
func ErrorCode(t *testing.T, rpcErr *transport.Error) string {
	t.Helper()
	require.NotNil(t, rpcErr, "expected an error response")
	require.Equal(t, transport.ErrApplication, rpcErr.Code)
	data, ok := rpcErr.Data.(map[string]any)
	require.True(t, ok, "error data: %#v", rpcErr.Data)
	code, _ := data["code"].(string)
	return code
}

type keyMap struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *keyMap) add(_ context.Context, hash, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[hash] = identity
	return nil
}

func (m *keyMap) IdentityForKeyHash(_ context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.keys[hash]
	if !ok {
		return "", repository.ErrNotFound
	}
	return identity, nil
}
