package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fetchParams struct {
	URL string `json:"url" jsonschema:"the http(s) URL to fetch"`
}

func (h *handler) fetchHandler(ctx context.Context, req *mcp.CallToolRequest, params fetchParams) (*mcp.CallToolResult, any, error) {
	if params.URL == "" {
		return errorResult("url is required")
	}
	text, err := h.web.Fetch(ctx, params.URL)
	if err != nil {
		return errorResult(fmt.Sprintf("fetch failed: %v", err))
	}
	return textResult(text)
}

type searchParams struct {
	Query string `json:"query" jsonschema:"the search query"`
}

func (h *handler) searchHandler(ctx context.Context, req *mcp.CallToolRequest, params searchParams) (*mcp.CallToolResult, any, error) {
	text, err := h.web.Search(ctx, params.Query)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err))
	}
	return textResult(text)
}

func (h *handler) newsHandler(ctx context.Context, req *mcp.CallToolRequest, params searchParams) (*mcp.CallToolResult, any, error) {
	text, err := h.web.SearchNews(ctx, params.Query)
	if err != nil {
		return errorResult(fmt.Sprintf("news search failed: %v", err))
	}
	return textResult(text)
}
