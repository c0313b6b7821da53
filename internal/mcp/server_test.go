package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func connectTestClient(t *testing.T, defaultCaller string) *sdkmcp.ClientSession {
	t.Helper()
	return connectLoggedClient(t, defaultCaller, nil)
}

func connectLoggedClient(t *testing.T, defaultCaller string, logger *slog.Logger) *sdkmcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	server := NewServer(Config{Handler: newTestHandler(t), DefaultCaller: defaultCaller, Logger: logger})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func decodeStructured[T any](t *testing.T, value any) T {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestServer_ListsEveryTool(t *testing.T) {
	session := connectTestClient(t, "alice")

	result, err := session.ListTools(context.Background(), &sdkmcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, newTestHandler(t).ToolNames(), names)
}

func TestServer_CallToolUsesDefaultCaller(t *testing.T) {
	session := connectTestClient(t, "alice")
	ctx := context.Background()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "create_project",
		Arguments: map[string]any{"description": "Logo design", "amount": "500"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	created := decodeStructured[ProjectResponse](t, result.StructuredContent)
	require.Equal(t, "alice", created.Project.Client)
	require.Equal(t, "500", created.Project.Amount)

	// The default caller is the client, so accepting is self-dealing.
	result, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "accept_project",
		Arguments: map[string]any{"id": created.Project.ID},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestServer_LifecycleResource(t *testing.T) {
	session := connectTestClient(t, "alice")

	result, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "proofchain://docs/lifecycle"})
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	require.Contains(t, result.Contents[0].Text, "SELF_DEALING")
}
