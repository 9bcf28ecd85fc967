package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolCallLogging writes one info line per tool call with the shopper, the
// tool and the product it touched. Other traffic is traced at debug level.
func toolCallLogging(logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method != "tools/call" {
				if logger.Enabled(ctx, slog.LevelDebug) {
					logger.Debug("mcp request", "method", method, "session_id", getSessionID(ctx), "params", formatPayload(safeParams(req)))
				}
				return next(ctx, method, req)
			}

			tool, productID := describeToolCall(req)
			start := time.Now()
			result, err := next(ctx, method, req)

			attrs := []any{
				"tool", tool,
				"user_id", getUserID(ctx),
				"session_id", getSessionID(ctx),
				"duration", time.Since(start),
			}
			if productID != "" {
				attrs = append(attrs, "product_id", productID)
			}
			switch {
			case err != nil:
				logger.Warn("tool call failed", append(attrs, "error", err)...)
			case isToolError(result):
				logger.Info("tool call rejected", attrs...)
			default:
				logger.Info("tool call", attrs...)
			}
			return result, err
		}
	}
}

// describeToolCall pulls the tool name and, when present, the product_id
// argument out of a tools/call request.
func describeToolCall(req sdkmcp.Request) (tool, productID string) {
	call, ok := req.(*sdkmcp.CallToolRequest)
	if !ok || call.Params == nil {
		return "", ""
	}
	var args struct {
		ProductID string `json:"product_id"`
	}
	if len(call.Params.Arguments) > 0 {
		_ = json.Unmarshal(call.Params.Arguments, &args)
	}
	return call.Params.Name, args.ProductID
}

func isToolError(result sdkmcp.Result) bool {
	res, ok := result.(*sdkmcp.CallToolResult)
	return ok && res != nil && res.IsError
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if session := req.GetSession(); session != nil {
		return session.ID()
	}
	return ""
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
