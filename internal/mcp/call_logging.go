package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// callLoggingMiddleware logs each tool call with the caller, the tool and,
// when the arguments carry one, the project id. Rejected calls are logged
// with their error code. Protocol traffic is logged at debug only.
func callLoggingMiddleware(logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil {
				return next(ctx, method, req)
			}

			call, ok := req.(*sdkmcp.CallToolRequest)
			if !ok || call.Params == nil {
				logger.Debug("mcp request", "method", method, "caller", getCaller(ctx))
				return next(ctx, method, req)
			}

			attrs := []any{"tool", call.Params.Name, "caller", getCaller(ctx)}
			if id, ok := projectIDArgument(call.Params.Arguments); ok {
				attrs = append(attrs, "project_id", id)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			attrs = append(attrs, "duration", time.Since(start))

			code := rejectionCode(result)
			switch {
			case err != nil:
				logger.Warn("tool call failed", append(attrs, "error", err)...)
			case code != "":
				logger.Info("tool call rejected", append(attrs, "code", code)...)
			default:
				logger.Info("tool call", attrs...)
			}
			return result, err
		}
	}
}

func projectIDArgument(raw json.RawMessage) (uint64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var args struct {
		ID *uint64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.ID == nil {
		return 0, false
	}
	return *args.ID, true
}

// rejectionCode returns the APIError code of a tool result flagged as an
// error, or "" for a successful result.
func rejectionCode(result sdkmcp.Result) string {
	res, ok := result.(*sdkmcp.CallToolResult)
	if !ok || res == nil || !res.IsError {
		return ""
	}
	for _, content := range res.Content {
		text, ok := content.(*sdkmcp.TextContent)
		if !ok {
			continue
		}
		if code, _, found := strings.Cut(text.Text, ":"); found && !strings.Contains(code, " ") {
			return code
		}
		break
	}
	return "UNKNOWN"
}
