package webclip

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/webclip/internal/kit"
)

// RegisterMCP registers the webclip tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerProcessTool(srv)
	s.registerBatchTool(srv)
	s.registerJobsTool(srv)
	s.registerJobTool(srv)
}

type processReq struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

func (s *Service) registerProcessTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "webclip_process",
		Description: "Classify a web page and save it as Markdown (text pages) or as a full-page screenshot PDF (image and mixed pages).",
		InputSchema: kit.InputSchema(map[string]any{
			"url":  map[string]any{"type": "string", "description": "Page URL; http:// is added when the scheme is missing"},
			"mode": map[string]any{"type": "string", "description": "auto (default), capture or text"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*processReq)
		return s.Process(ctx, r.URL, r.Mode)
	}
	kit.RegisterMCPTool(srv, tool, s.instrument("webclip_process", endpoint), kit.DecodeJSON[processReq]())
}

type batchReq struct {
	URLs []string `json:"urls"`
}

func (s *Service) registerBatchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "webclip_batch",
		Description: "Capture several web pages and merge them, in order, into one PDF.",
		InputSchema: kit.InputSchema(map[string]any{
			"urls": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}, []string{"urls"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.ProcessBatch(ctx, req.(*batchReq).URLs)
	}
	kit.RegisterMCPTool(srv, tool, s.instrument("webclip_batch", endpoint), kit.DecodeJSON[batchReq]())
}

type jobsReq struct {
	Limit int `json:"limit"`
}

func (s *Service) registerJobsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "webclip_jobs",
		Description: "List recent webclip jobs, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum jobs to return (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		jobs, err := s.Jobs(ctx, req.(*jobsReq).Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"jobs": jobs}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.instrument("webclip_jobs", endpoint), kit.DecodeJSON[jobsReq]())
}

type jobReq struct {
	ID string `json:"id"`
}

func (s *Service) registerJobTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "webclip_job",
		Description: "Get one webclip job with its processing report.",
		InputSchema: kit.InputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Job ID"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Job(ctx, req.(*jobReq).ID)
	}
	kit.RegisterMCPTool(srv, tool, s.instrument("webclip_job", endpoint), kit.DecodeJSON[jobReq]())
}

// instrument wraps an endpoint with call logging.
func (s *Service) instrument(op string, e kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(s.logger, op))(e)
}

