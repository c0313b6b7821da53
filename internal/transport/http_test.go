package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type codedErr struct {
	code string
}

func (e codedErr) Error() string             { return e.code }
func (e codedErr) CodeValue() string         { return e.code }
func (e codedErr) MessageValue() string      { return "message for " + e.code }
func (e codedErr) DetailsValue() any         { return nil }
func (e codedErr) RecoveryHintValue() string { return "try again" }

type testHandler struct {
	method string
	caller string
	err    error
}

func (h *testHandler) Handle(_ context.Context, caller, method string, _ json.RawMessage) (any, error) {
	h.method = method
	h.caller = caller
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"caller": caller}, nil
}

type staticResolver struct {
	caller string
}

func (r *staticResolver) ResolveCaller(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	return r.caller, nil
}

func postRPC(t *testing.T, url, body string) Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{caller: "alice"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_project_count","id":1}`)
	require.Nil(t, resp.Error)
	require.Equal(t, "get_project_count", handler.method)
	require.Equal(t, "alice", handler.caller)
}

func TestHTTPServer_RPCRequiresToken(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, AuthMiddleware(&staticResolver{caller: "alice"})))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/rpc", "application/json", bytes.NewBufferString(`{"jsonrpc":"2.0","method":"x","id":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_RPCErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
		data string
	}{
		{codedErr{"INVALID_STATE"}, ErrApplication, "INVALID_STATE"},
		{fmt.Errorf("wrapped: %w", codedErr{"SELF_DEALING"}), ErrApplication, "SELF_DEALING"},
		{codedErr{"METHOD_NOT_FOUND"}, ErrMethodNotFound, "METHOD_NOT_FOUND"},
		{codedErr{"INVALID_PARAMS"}, ErrInvalidParams, "INVALID_PARAMS"},
		{errors.New("disk on fire"), ErrInternal, ""},
	}
	for _, tc := range cases {
		handler := &testHandler{err: tc.err}
		server := httptest.NewServer(NewServer(handler, NoAuthMiddleware("alice")))

		resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"approve_work","params":{"id":1},"id":7}`)
		server.Close()

		require.NotNil(t, resp.Error)
		require.Equal(t, tc.code, resp.Error.Code)
		if tc.data == "" {
			require.Nil(t, resp.Error.Data)
			require.NotContains(t, resp.Error.Message, "disk")
			continue
		}
		data, ok := resp.Error.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, tc.data, data["code"])
		require.Equal(t, "try again", data["recovery_hint"])
	}
}

func TestHTTPServer_Health(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, AuthMiddleware(&staticResolver{caller: "alice"})))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_RPCRejectsBadEnvelopes(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, NoAuthMiddleware("alice")))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":`)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrParseCode, resp.Error.Code)

	resp = postRPC(t, server.URL, `{"jsonrpc":"2.0","id":1}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrInvalidReq, resp.Error.Code)

	require.Empty(t, handler.method)
}
