package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/search"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	c, err := corpus.Handbook()
	if err != nil {
		t.Fatalf("Handbook() error = %v", err)
	}
	s, err := NewSession(SessionOptions{
		Version:      "test",
		Corpus:       c,
		Search:       search.DefaultParams(),
		DefaultLimit: 5,
		MaxLimit:     20,
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

func initialize(t *testing.T, d *Dispatcher) {
	t.Helper()
	_, err := d.Dispatch(context.Background(), "initialize",
		json.RawMessage(`{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"1"}}`))
	if err != nil {
		t.Fatalf("initialize error = %v", err)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(b)
}

func TestParseMethod(t *testing.T) {
	for m, name := range methodNames {
		if got := ParseMethod(name); got != m {
			t.Errorf("ParseMethod(%q) = %v, want %v", name, got, m)
		}
		if got := m.String(); got != name {
			t.Errorf("%v.String() = %q", m, got)
		}
	}
	for _, name := range []string{"", "Initialize", "tools/delete", "resources/subscribe"} {
		if got := ParseMethod(name); got != MethodUnknown {
			t.Errorf("ParseMethod(%q) = %v, want MethodUnknown", name, got)
		}
	}
}

func TestDispatchLifecycle(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(newTestSession(t))

	for _, method := range []string{"ping", "tools/list", "resources/list", "prompts/list", "tools/call", "tools/explode"} {
		_, err := d.Dispatch(ctx, method, nil)
		if !failure.Is(err, NotInitialized) {
			t.Errorf("%s before initialize error = %v, want NotInitialized", method, err)
		}
	}
	for _, method := range []string{"notifications/initialized", "notifications/cancelled"} {
		if _, err := d.Dispatch(ctx, method, nil); err != nil {
			t.Errorf("%s before initialize error = %v", method, err)
		}
	}
	if d.Phase() != PhaseUninitialized {
		t.Fatalf("phase after rejected calls = %v, want uninitialized", d.Phase())
	}

	initialize(t, d)
	if d.Phase() != PhaseReady || d.ProtocolVersion() != "2025-06-18" {
		t.Fatalf("after initialize phase = %v version = %q", d.Phase(), d.ProtocolVersion())
	}
	if _, err := d.Dispatch(ctx, "tools/list", nil); err != nil {
		t.Errorf("tools/list error = %v", err)
	}
	if got, err := d.Dispatch(ctx, "ping", nil); err != nil || mustJSON(t, got) != "{}" {
		t.Errorf("ping = %v, %v", got, err)
	}
	if _, err := d.Dispatch(ctx, "tools/explode", nil); !failure.Is(err, MethodNotFound) {
		t.Errorf("unknown method error = %v, want MethodNotFound", err)
	}

	// Re-initialize renegotiates.
	_, err := d.Dispatch(ctx, "initialize", json.RawMessage(`{"protocolVersion":"2024-11-05"}`))
	if err != nil || d.ProtocolVersion() != "2024-11-05" {
		t.Errorf("re-initialize error = %v version = %q", err, d.ProtocolVersion())
	}

	d.Shutdown()
	for _, method := range []string{"ping", "initialize", "tools/list", "nope"} {
		_, err := d.Dispatch(ctx, method, nil)
		if !failure.Is(err, ShuttingDown) {
			t.Errorf("%s after shutdown error = %v, want ShuttingDown", method, err)
		}
	}
}

func TestInitializeResult(t *testing.T) {
	d := NewDispatcher(newTestSession(t))
	got, err := d.Dispatch(context.Background(), "initialize", json.RawMessage(`{"protocolVersion":"2025-03-26"}`))
	if err != nil {
		t.Fatalf("initialize error = %v", err)
	}

	var res map[string]any
	if err := json.Unmarshal([]byte(mustJSON(t, got)), &res); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"protocolVersion": "2025-03-26",
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": false},
			"resources": map[string]any{"listChanged": false},
			"prompts":   map[string]any{"listChanged": false},
		},
		"serverInfo":   map[string]any{"name": "stylusport-mcp", "version": "test"},
		"instructions": instructions,
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("initialize result mismatch (-want +got):\n%s", diff)
	}
}

func TestInitializeVersionNegotiation(t *testing.T) {
	tests := []struct {
		name     string
		params   string
		wantCode int
	}{
		{name: "unsupported", params: `{"protocolVersion":"1999-01-01"}`, wantCode: codeInvalidParams},
		{name: "missing", params: `{}`, wantCode: codeInvalidParams},
		{name: "not an object", params: `[1,2]`, wantCode: codeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(newTestSession(t))
			_, err := d.Dispatch(context.Background(), "initialize", json.RawMessage(tt.params))
			if err == nil {
				t.Fatal("initialize error = nil")
			}
			if got := toRPCError(err).Code; got != tt.wantCode {
				t.Errorf("code = %d, want %d", got, tt.wantCode)
			}
			if d.Phase() != PhaseUninitialized {
				t.Errorf("phase = %v, want uninitialized", d.Phase())
			}
		})
	}

	d := NewDispatcher(newTestSession(t))
	_, err := d.Dispatch(context.Background(), "initialize", json.RawMessage(`{"protocolVersion":"1999-01-01"}`))
	rpcErr := toRPCError(err)
	if !strings.Contains(rpcErr.Message, mcp.LATEST_PROTOCOL_VERSION) {
		t.Errorf("message %q does not name %s", rpcErr.Message, mcp.LATEST_PROTOCOL_VERSION)
	}
	if rpcErr.Data["latest"] != mcp.LATEST_PROTOCOL_VERSION || rpcErr.Data["error"] != string(ProtocolError) {
		t.Errorf("data = %v", rpcErr.Data)
	}
}

func TestResourcesListIsStable(t *testing.T) {
	d := NewDispatcher(newTestSession(t))
	initialize(t, d)

	first, err := d.Dispatch(context.Background(), "resources/list", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Dispatch(context.Background(), "resources/list", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a, b := mustJSON(t, first), mustJSON(t, second); a != b {
		t.Errorf("resources/list not byte-identical:\n%s\n%s", a, b)
	}

	res := first.(mcp.ListResourcesResult)
	if len(res.Resources) != 13 {
		t.Fatalf("len(resources) = %d, want 13", len(res.Resources))
	}
	want := mcp.Resource{
		URI:         "file:///handbook/src/introduction.md",
		Name:        "introduction",
		Description: "Introduction to migrating from Solana to Stylus",
		MIMEType:    "text/markdown",
	}
	if diff := cmp.Diff(want, res.Resources[0]); diff != "" {
		t.Errorf("first resource mismatch (-want +got):\n%s", diff)
	}
}

func TestResourcesRead(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(newTestSession(t))
	initialize(t, d)

	got, err := d.Dispatch(ctx, "resources/read", json.RawMessage(`{"uri":"file:///handbook/src/state-storage.md"}`))
	if err != nil {
		t.Fatalf("resources/read error = %v", err)
	}
	res := got.(*mcp.ReadResourceResult)
	if len(res.Contents) != 1 {
		t.Fatalf("len(contents) = %d", len(res.Contents))
	}
	text := res.Contents[0].(mcp.TextResourceContents)
	if text.URI != "file:///handbook/src/state-storage.md" || text.MIMEType != "text/markdown" || text.Text == "" {
		t.Errorf("contents = %+v", text)
	}

	_, err = d.Dispatch(ctx, "resources/read", json.RawMessage(`{"uri":"file:///handbook/src/nope.md"}`))
	if rpcErr := toRPCError(err); rpcErr.Code != codeResourceNotFound {
		t.Errorf("missing resource error = %+v", rpcErr)
	}
	_, err = d.Dispatch(ctx, "resources/read", json.RawMessage(`{}`))
	if rpcErr := toRPCError(err); rpcErr.Code != codeInvalidParams || rpcErr.Data["field"] != "uri" {
		t.Errorf("missing uri error = %+v", rpcErr)
	}

	templates, err := d.Dispatch(ctx, "resources/templates/list", nil)
	if err != nil || mustJSON(t, templates) != `{"resourceTemplates":[]}` {
		t.Errorf("resources/templates/list = %s, %v", mustJSON(t, templates), err)
	}
}

func TestToolsList(t *testing.T) {
	d := NewDispatcher(newTestSession(t))
	initialize(t, d)

	got, err := d.Dispatch(context.Background(), "tools/list", nil)
	if err != nil {
		t.Fatal(err)
	}
	tools := got.(mcp.ListToolsResult).Tools
	names := lo.Map(tools, func(tool mcp.Tool, _ int) string { return tool.Name })
	want := []string{
		"detect_solana_program_kind",
		"generate_stylus_contract_cargo_manifest",
		"generate_stylus_contract_main_rs",
		"search_handbook",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tool names mismatch (-want +got):\n%s", diff)
	}
	if tools[3].Annotations.Title != "Search StylusPort::Solana Handbook" {
		t.Errorf("search title = %q", tools[3].Annotations.Title)
	}
	if diff := cmp.Diff([]string{"query"}, tools[3].InputSchema.Required); diff != "" {
		t.Errorf("search required mismatch (-want +got):\n%s", diff)
	}
	limit := tools[3].InputSchema.Properties["limit"].(map[string]any)
	if limit["type"] != "integer" || limit["minimum"] != float64(1) {
		t.Errorf("limit schema = %v", limit)
	}
}

func callTool(t *testing.T, d *Dispatcher, params string) (*mcp.CallToolResult, *RPCError) {
	t.Helper()
	got, err := d.Dispatch(context.Background(), "tools/call", json.RawMessage(params))
	if err != nil {
		return nil, toRPCError(err)
	}
	return got.(*mcp.CallToolResult), nil
}

func texts(res *mcp.CallToolResult) []string {
	return lo.Map(res.Content, func(c mcp.Content, _ int) string {
		return c.(mcp.TextContent).Text
	})
}

func TestToolsCall(t *testing.T) {
	d := NewDispatcher(newTestSession(t))
	initialize(t, d)

	tests := []struct {
		name      string
		params    string
		want      []string
		wantCode  int
		wantData  map[string]any
		checkText func(t *testing.T, text string)
	}{
		{
			name:   "detect anchor",
			params: `{"name":"detect_solana_program_kind","arguments":{"cargo_manifest":"[package]\nname = \"p\"\n\n[dependencies]\nanchor-lang = \"0.30.1\"\n"}}`,
			want:   []string{"anchor"},
		},
		{
			name:     "detect invalid manifest",
			params:   `{"name":"detect_solana_program_kind","arguments":{"cargo_manifest":"hello"}}`,
			wantCode: codeHandlerError,
			wantData: map[string]any{"error": "HandlerError", "code": "InvalidManifest"},
		},
		{
			name:   "cargo manifest",
			params: `{"name":"generate_stylus_contract_cargo_manifest","arguments":{"package_name":"my-token"}}`,
			checkText: func(t *testing.T, text string) {
				if !strings.Contains(text, `name = "my-token"`) || !strings.Contains(text, `stylus-sdk = "=0.9.0"`) {
					t.Errorf("manifest = %s", text)
				}
			},
		},
		{
			name:   "main.rs",
			params: `{"name":"generate_stylus_contract_main_rs","arguments":{"package_name":"my-token"}}`,
			checkText: func(t *testing.T, text string) {
				if !strings.Contains(text, "my_token::print_from_args();") {
					t.Errorf("main.rs = %s", text)
				}
			},
		},
		{
			name:     "invalid package name",
			params:   `{"name":"generate_stylus_contract_main_rs","arguments":{"package_name":"bad name"}}`,
			wantCode: codeHandlerError,
			wantData: map[string]any{"error": "HandlerError", "code": "InvalidPackageName"},
		},
		{
			name:     "missing argument",
			params:   `{"name":"generate_stylus_contract_main_rs","arguments":{}}`,
			wantCode: codeInvalidParams,
			wantData: map[string]any{"error": "InvalidParams", "field": "package_name"},
		},
		{
			name:     "wrong argument type",
			params:   `{"name":"search_handbook","arguments":{"query":42}}`,
			wantCode: codeInvalidParams,
			wantData: map[string]any{"error": "InvalidParams", "field": "query"},
		},
		{
			name:     "empty query",
			params:   `{"name":"search_handbook","arguments":{"query":""}}`,
			wantCode: codeHandlerError,
			wantData: map[string]any{"error": "HandlerError", "code": "EmptyQuery"},
		},
		{
			name:     "limit above max",
			params:   `{"name":"search_handbook","arguments":{"query":"token","limit":21}}`,
			wantCode: codeInvalidParams,
			wantData: map[string]any{"error": "InvalidParams", "field": "limit"},
		},
		{
			name:     "zero limit",
			params:   `{"name":"search_handbook","arguments":{"query":"token","limit":0}}`,
			wantCode: codeInvalidParams,
			wantData: map[string]any{"error": "InvalidParams", "field": "limit"},
		},
		{
			name:     "fractional limit",
			params:   `{"name":"search_handbook","arguments":{"query":"token","limit":2.5}}`,
			wantCode: codeInvalidParams,
			wantData: map[string]any{"error": "InvalidParams", "field": "limit"},
		},
		{
			name:     "unknown tool",
			params:   `{"name":"drop_tables","arguments":{}}`,
			wantCode: codeNotFound,
			wantData: map[string]any{"error": "NotFound"},
		},
		{
			name:     "missing name",
			params:   `{"arguments":{}}`,
			wantCode: codeInvalidParams,
			wantData: map[string]any{"error": "InvalidParams", "field": "name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rpcErr := callTool(t, d, tt.params)
			if tt.wantCode != 0 {
				if rpcErr == nil {
					t.Fatalf("tools/call result = %v, want error %d", res, tt.wantCode)
				}
				if rpcErr.Code != tt.wantCode {
					t.Errorf("code = %d, want %d (%s)", rpcErr.Code, tt.wantCode, rpcErr.Message)
				}
				if diff := cmp.Diff(tt.wantData, rpcErr.Data); diff != "" {
					t.Errorf("data mismatch (-want +got):\n%s", diff)
				}
				return
			}
			if rpcErr != nil {
				t.Fatalf("tools/call error = %+v", rpcErr)
			}
			if tt.want != nil {
				if diff := cmp.Diff(tt.want, texts(res)); diff != "" {
					t.Errorf("content mismatch (-want +got):\n%s", diff)
				}
			}
			if tt.checkText != nil {
				tt.checkText(t, texts(res)[0])
			}
		})
	}
}

func TestSearchHandbookTool(t *testing.T) {
	s := newTestSession(t)
	d := NewDispatcher(s)
	initialize(t, d)

	res, rpcErr := callTool(t, d, `{"name":"search_handbook","arguments":{"query":"reentrancy","limit":3}}`)
	if rpcErr != nil {
		t.Fatalf("search error = %+v", rpcErr)
	}
	uris := texts(res)
	if len(uris) == 0 || len(uris) > 3 {
		t.Fatalf("search returned %d URIs", len(uris))
	}
	want := lo.Map(s.Index().Search("reentrancy", 3), func(h search.Hit, _ int) string { return h.ID })
	if diff := cmp.Diff(want, uris); diff != "" {
		t.Errorf("search order mismatch (-want +got):\n%s", diff)
	}

	res, rpcErr = callTool(t, d, `{"name":"search_handbook","arguments":{"query":"token"}}`)
	if rpcErr != nil {
		t.Fatalf("search without limit error = %+v", rpcErr)
	}
	want = lo.Map(s.Index().Search("token", 5), func(h search.Hit, _ int) string { return h.ID })
	if diff := cmp.Diff(want, texts(res)); diff != "" {
		t.Errorf("default limit mismatch (-want +got):\n%s", diff)
	}

	res, rpcErr = callTool(t, d, `{"name":"search_handbook","arguments":{"query":"zzqxv"}}`)
	if rpcErr != nil || len(res.Content) != 0 {
		t.Errorf("unknown term search = %v, %+v", res, rpcErr)
	}
	if got := mustJSON(t, res); got != `{"content":[]}` {
		t.Errorf("empty search JSON = %s", got)
	}
}

func TestPrompts(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(newTestSession(t))
	initialize(t, d)

	list, err := d.Dispatch(ctx, "prompts/list", nil)
	if err != nil {
		t.Fatal(err)
	}
	prompts := list.(mcp.ListPromptsResult).Prompts
	if len(prompts) != 1 || prompts[0].Name != "plan_solana_program_stylus_migration" {
		t.Fatalf("prompts = %+v", prompts)
	}

	tests := []struct {
		name     string
		args     string
		contains []string
		excludes []string
		wantCode int
	}{
		{
			name:     "no arguments",
			args:     `{}`,
			contains: []string{"detect_solana_program_kind", "file:///handbook/src/security-considerations.md"},
			excludes: []string{"The developer reports"},
		},
		{
			name:     "anchor",
			args:     `{"program_kind":"anchor"}`,
			contains: []string{"an Anchor program", "#[derive(Accounts)]"},
		},
		{
			name:     "native",
			args:     `{"program_kind":"native"}`,
			contains: []string{"a native program", "invoke_signed"},
		},
		{name: "unknown kind", args: `{"program_kind":"seahorse"}`, wantCode: codeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Dispatch(ctx, "prompts/get",
				json.RawMessage(`{"name":"plan_solana_program_stylus_migration","arguments":`+tt.args+`}`))
			if tt.wantCode != 0 {
				if code := toRPCError(err).Code; code != tt.wantCode {
					t.Errorf("code = %d, want %d", code, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("prompts/get error = %v", err)
			}
			res := got.(*mcp.GetPromptResult)
			if len(res.Messages) != 1 || res.Messages[0].Role != mcp.RoleUser {
				t.Fatalf("messages = %+v", res.Messages)
			}
			text := res.Messages[0].Content.(mcp.TextContent).Text
			for _, s := range tt.contains {
				if !strings.Contains(text, s) {
					t.Errorf("prompt does not contain %q", s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(text, s) {
					t.Errorf("prompt contains %q", s)
				}
			}
		})
	}

	_, err = d.Dispatch(ctx, "prompts/get", json.RawMessage(`{"name":"nope"}`))
	if code := toRPCError(err).Code; code != codeNotFound {
		t.Errorf("unknown prompt code = %d, want %d", code, codeNotFound)
	}
}
