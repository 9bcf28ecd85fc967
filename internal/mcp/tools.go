package mcp

import (
	"context"
	"log/slog"

	"github.com/ganot/atelier/internal/domain/viewed"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type emptyInput struct{}

type recentOutput struct {
	Items []viewed.TrackedItem `json:"items"`
	Count int                  `json:"count"`
}

type recordViewInput struct {
	ProductID string `json:"product_id" jsonschema:"catalog id of the product that was viewed"`
}

type ackOutput struct {
	OK bool `json:"ok"`
}

func registerTools(server *sdkmcp.Server, svc HistoryService, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_recently_viewed",
		Description: "List the products the current shopper viewed most recently, newest first (at most 10)",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, recentOutput, error) {
		items, err := svc.Recent(ctx, getUserID(ctx))
		if err != nil {
			logger.Warn("get_recently_viewed failed", "user_id", getUserID(ctx), "error", err)
			return nil, recentOutput{}, MapError(err)
		}
		if items == nil {
			items = []viewed.TrackedItem{}
		}
		return nil, recentOutput{Items: items, Count: len(items)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "record_product_view",
		Description: "Record that the current shopper viewed a catalog product, moving it to the front of their history",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in recordViewInput) (*sdkmcp.CallToolResult, ackOutput, error) {
		if err := svc.RecordView(ctx, getUserID(ctx), in.ProductID); err != nil {
			logger.Debug("record_product_view rejected", "user_id", getUserID(ctx), "session_id", getSessionID(ctx), "error", err)
			return nil, ackOutput{}, MapError(err)
		}
		return nil, ackOutput{OK: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "clear_recently_viewed",
		Description: "Erase the current shopper's recently viewed history",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, ackOutput, error) {
		if err := svc.Clear(ctx, getUserID(ctx)); err != nil {
			return nil, ackOutput{}, MapError(err)
		}
		return nil, ackOutput{OK: true}, nil
	})
}
