package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/humkit/internal/scoreservice"
	"github.com/starford/humkit/internal/storage"
	"github.com/starford/humkit/internal/testutil"
)

const tiny = "**kern\n4c\n*-\n"

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	svc := scoreservice.NewService(store, testutil.TestDB(t))
	return New(svc), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_scores":    srv.searchScores,
		"read_score":       srv.readScore,
		"score_info":       srv.scoreInfo,
		"list_scores":      srv.listScores,
		"find_references":  srv.findReferences,
		"check_score":      srv.checkScore,
		"create_score":     srv.createScore,
		"import_score":     srv.importScore,
		"get_format_guide": srv.getFormatGuide,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadScore(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_score", map[string]interface{}{
		"path":    "test.krn",
		"content": tiny,
	})
	if text := resultText(r); text != "created: test.krn" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_score", map[string]interface{}{"path": "test.krn"})
	if text := resultText(r); text != tiny {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "create_score", map[string]interface{}{"path": "test.krn", "content": tiny})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}
}

func TestCreateScore_Invalid(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_score", map[string]interface{}{"path": "bad.krn", "content": "4c\n"})
	if !r.IsError {
		t.Error("expected error for content without exclusive interpretation")
	}
}

func TestReadScoreMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_score", map[string]interface{}{"path": "nope.krn"})
	if !r.IsError || resultText(r) != "not found: nope.krn" {
		t.Errorf("missing score = %q", resultText(r))
	}
}

func TestListAndInfo(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_score", map[string]interface{}{"path": "a.krn", "content": tiny})
	callTool(t, srv, "create_score", map[string]interface{}{"path": "bach/chorale.krn", "content": testutil.Chorale})

	r := callTool(t, srv, "list_scores", map[string]interface{}{})
	if text := resultText(r); text != "a.krn\nbach/chorale.krn" {
		t.Errorf("list = %q", text)
	}
	r = callTool(t, srv, "list_scores", map[string]interface{}{"type": "text"})
	if text := resultText(r); text != "bach/chorale.krn" {
		t.Errorf("list text spines = %q", text)
	}

	r = callTool(t, srv, "score_info", map[string]interface{}{"path": "bach/chorale.krn"})
	var meta struct {
		Title  string `json:"title"`
		Tracks int    `json:"tracks"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &meta); err != nil {
		t.Fatalf("info json: %v", err)
	}
	if meta.Title != "Aus meines Herzens Grunde" || meta.Tracks != 3 {
		t.Errorf("info = %+v", meta)
	}
}

func TestSearchAndReferences(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_score", map[string]interface{}{"path": "chorale.krn", "content": testutil.Chorale})

	r := callTool(t, srv, "search_scores", map[string]interface{}{"query": "Herzens"})
	if !strings.Contains(resultText(r), "chorale.krn") {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, srv, "find_references", map[string]interface{}{"key": "COM", "value": "Bach"})
	if !strings.Contains(resultText(r), "Johann Sebastian") {
		t.Errorf("references = %q", resultText(r))
	}
}

func TestCheckScore(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "check_score", map[string]interface{}{"content": "**kern\n(4c\n4d\n*-\n"})
	var rep checkReport
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatalf("check json: %v", err)
	}
	if !rep.Valid || rep.Analysis == nil || rep.Analysis.HangingSlurs != 1 {
		t.Errorf("report = %+v", rep)
	}

	r = callTool(t, srv, "check_score", map[string]interface{}{"content": "4c\n"})
	rep = checkReport{}
	_ = json.Unmarshal([]byte(resultText(r)), &rep)
	if rep.Valid || rep.Error == "" {
		t.Errorf("invalid report = %+v", rep)
	}

	if items, _ := store.List(""); len(items) != 0 {
		t.Errorf("check_score wrote files: %+v", items)
	}
}

func TestImportScore_DataURI(t *testing.T) {
	srv, store := testServer(t)
	uri := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(tiny))

	r := callTool(t, srv, "import_score", map[string]interface{}{
		"url":      uri,
		"filename": "my song.krn",
		"dir":      "folk",
	})
	if r.IsError {
		t.Fatalf("import = %q", resultText(r))
	}
	data, err := store.Read("folk/my_song.krn")
	if err != nil || string(data) != tiny {
		t.Errorf("stored = %q, %v", data, err)
	}
}

func TestImportScore_Rejects(t *testing.T) {
	srv, _ := testServer(t)
	cases := map[string]string{
		"binary":   "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0, 0, 1}),
		"markdown": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("# title\n")),
		"plain":    "data:text/plain,**kern",
		"scheme":   "ftp://example.com/a.krn",
		"loopback": "http://127.0.0.1/a.krn",
	}
	for name, uri := range cases {
		r := callTool(t, srv, "import_score", map[string]interface{}{"url": uri})
		if !r.IsError {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFilenameHelpers(t *testing.T) {
	if got := filenameFromURL("https://kern.example.org/bach/chor001.krn"); got != "chor001.krn" {
		t.Errorf("filenameFromURL = %q", got)
	}
	if got := filenameFromURL("data:text/plain;base64,AAAA"); !strings.HasSuffix(got, ".krn") {
		t.Errorf("data URI name = %q", got)
	}
	if got := sanitizeFilename("../../.hidden évil.krn"); got != "hidden__vil.krn" {
		t.Errorf("sanitizeFilename = %q", got)
	}
	if _, err := sanitizeDir("../up"); err == nil {
		t.Error("sanitizeDir should reject traversal")
	}
}

func TestFormatGuide(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_format_guide", map[string]interface{}{})
	if !strings.Contains(resultText(r), "**kern") {
		t.Error("guide does not mention **kern")
	}
	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
