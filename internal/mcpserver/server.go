// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes humkit score tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/internal/index"
	"github.com/starford/humkit/internal/models"
	"github.com/starford/humkit/internal/scoremeta"
	"github.com/starford/humkit/internal/scoreservice"
)

const formatURI = "humkit://humdrum-format"

// Server wraps the MCP server with humkit tools.
type Server struct {
	mcp *server.MCPServer
	svc *scoreservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *scoreservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"humkit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_scores",
		mcp.WithDescription("Full-text search through score titles, composers, comments and lyrics."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchScores)

	s.mcp.AddTool(mcp.NewTool("read_score",
		mcp.WithDescription("Read the raw Humdrum text of a score."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the score (e.g. bach/chorale001.krn)")),
	), s.readScore)

	s.mcp.AddTool(mcp.NewTool("score_info",
		mcp.WithDescription("Indexed metadata of a score: spines, references, instruments, duration and measures."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the score")),
	), s.scoreInfo)

	s.mcp.AddTool(mcp.NewTool("list_scores",
		mcp.WithDescription("List indexed scores, optionally filtered by spine data type or composer."),
		mcp.WithString("type", mcp.Description("Only scores with a spine of this type, e.g. kern or **mens")),
		mcp.WithString("composer", mcp.Description("Composer substring")),
	), s.listScores)

	s.mcp.AddTool(mcp.NewTool("find_references",
		mcp.WithDescription("Find reference records (!!!KEY: value) across the library."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Reference key, e.g. COM, OTL or SCT")),
		mcp.WithString("value", mcp.Description("Optional value substring")),
	), s.findReferences)

	s.mcp.AddTool(mcp.NewTool("check_score",
		mcp.WithDescription("Parse Humdrum content without saving it and report errors, "+
			"metadata and hanging slurs or ties. Use this before create_score."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Humdrum text")),
	), s.checkScore)

	s.mcp.AddTool(mcp.NewTool("create_score",
		mcp.WithDescription("Create a new score at the specified path. Content MUST be valid "+
			"Humdrum; read the format guide first via get_format_guide or the "+formatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new score (must end with .krn, .hmd or .hum)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Humdrum text")),
	), s.createScore)

	s.mcp.AddTool(mcp.NewTool("import_score",
		mcp.WithDescription("Download a Humdrum file from an http(s) URL or a base64 data URI "+
			"and add it to the library. Segmented streams are split into one score per segment."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
		mcp.WithString("dir", mcp.Description("Optional target directory inside the library")),
	), s.importScore)

	s.mcp.AddTool(mcp.NewTool("get_format_guide",
		mcp.WithDescription("Returns a short guide to the Humdrum format accepted by this library."),
	), s.getFormatGuide)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Humdrum Format Guide",
			mcp.WithResourceDescription("Humdrum structure rules that every stored score must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("score already exists: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchScores(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) readScore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	score, err := s.svc.Get(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(score.Content), nil
}

func (s *Server) scoreInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.svc.Info(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(meta)
}

func (s *Server) listScores(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.List(ctx, index.ListQuery{
		DataType: req.GetString("type", ""),
		Composer: req.GetString("composer", ""),
		Limit:    500,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no scores found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) findReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.References(ctx, key, req.GetString("value", ""), 100)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hits == nil {
		hits = []index.ReferenceHit{}
	}
	return jsonResult(hits)
}

type checkReport struct {
	Valid    bool                   `json:"valid"`
	Error    string                 `json:"error,omitempty"`
	Metadata *models.ScoreMetadata  `json:"metadata,omitempty"`
	Analysis *scoreservice.Analysis `json:"analysis,omitempty"`
}

func (s *Server) checkScore(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := scoremeta.Parse("score.krn", []byte(content))
	if err != nil {
		return jsonResult(checkReport{Error: err.Error()})
	}
	return jsonResult(checkReport{
		Valid:    true,
		Metadata: &res.Metadata,
		Analysis: scoreservice.Analyze(res.File),
	})
}

func (s *Server) createScore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Create(ctx, path, []byte(content)); err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) getFormatGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatGuide), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     FormatGuide,
		},
	}, nil
}
