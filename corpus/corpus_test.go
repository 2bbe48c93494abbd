package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/stylusport/handbook-mcp/search"
)

func TestHandbook(t *testing.T) {
	c, err := Handbook()
	if err != nil {
		t.Fatalf("Handbook() error = %v", err)
	}

	wantNames := []string{
		"introduction",
		"program-structure",
		"state-storage",
		"access-control",
		"external-calls",
		"native-tokens",
		"fungible-tokens",
		"non-fungible-tokens",
		"errors-events",
		"case-study-bonafida-token-vesting",
		"testing-debugging",
		"gas-optimization",
		"security-considerations",
	}
	docs := c.Documents()
	if diff := cmp.Diff(wantNames, lo.Map(docs, func(d Document, _ int) string { return d.Name })); diff != "" {
		t.Fatalf("Handbook() names mismatch (-want +got):\n%s", diff)
	}

	for _, d := range docs {
		if d.URI != "file:///handbook/src/"+d.Name+".md" {
			t.Errorf("%s: URI = %q", d.Name, d.URI)
		}
		if d.MIMEType != MIMEMarkdown {
			t.Errorf("%s: MIMEType = %q", d.Name, d.MIMEType)
		}
		if d.Title == "" || d.Description == "" || d.URL == "" {
			t.Errorf("%s: missing metadata %+v", d.Name, d)
		}
		if strings.HasPrefix(d.Text, "---") {
			t.Errorf("%s: front matter leaked into text", d.Name)
		}
	}

	if got := docs[1].Title; got != "Handbook Chapter: Program Structure" {
		t.Errorf("program-structure title = %q", got)
	}
}

func TestHandbookSearch(t *testing.T) {
	c, err := Handbook()
	if err != nil {
		t.Fatalf("Handbook() error = %v", err)
	}
	idx, err := c.Index(search.DefaultParams())
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	for _, q := range []string{"constructor", "Solana Stylus", "StorageAddress msg_sender", "reentrancy"} {
		t.Run(q, func(t *testing.T) {
			hits := idx.Search(q, c.Len())
			if len(hits) == 0 {
				t.Fatalf("Search(%q) returned nothing", q)
			}
			for _, h := range hits {
				if _, ok := c.Lookup(h.ID); !ok {
					t.Errorf("Search(%q) returned unknown URI %q", q, h.ID)
				}
			}
		})
	}

	hits := idx.Search("reentrancy", c.Len())
	uris := lo.Map(hits, func(h search.Hit, _ int) string { return h.ID })
	if !lo.Contains(uris, "file:///handbook/src/security-considerations.md") {
		t.Errorf("Search(reentrancy) = %v, want security chapter included", uris)
	}
}

func TestSplitMarkdown(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantProse string
		wantCode  string
	}{
		{
			name:      "fenced block",
			in:        "Intro text\n```rust\nlet x = 1;\n```\nOutro\n",
			wantProse: "Intro text\nOutro\n",
			wantCode:  "let x = 1;\n",
		},
		{
			name:      "tilde fence",
			in:        "~~~\nfn a() {}\n~~~\n",
			wantProse: "",
			wantCode:  "fn a() {}\n",
		},
		{
			name:      "inline code",
			in:        "Call `msg_sender` before `transfer_eth`.\n",
			wantProse: "Call   before  .\n",
			wantCode:  "msg_sender\ntransfer_eth\n",
		},
		{
			name:      "links keep text only",
			in:        "See [Program Structure](program-structure.md) first.\n",
			wantProse: "See Program Structure first.\n",
			wantCode:  "",
		},
		{
			name:      "unterminated fence runs to end",
			in:        "a\n```\nb\nc\n",
			wantProse: "a\n",
			wantCode:  "b\nc\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prose, code := splitMarkdown(tt.in)
			if diff := cmp.Diff(tt.wantProse, prose); diff != "" {
				t.Errorf("prose mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCode, code); diff != "" {
				t.Errorf("code mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "second.md", "---\ntitle: Second\norder: 2\n---\n\nBody two.\n")
	writeFile(t, dir, "first_chapter.md", "---\ntitle: First\ndescription: The first one\norder: 1\n---\nBody one.\n")
	writeFile(t, dir, "untitled.md", "# Heading Title\n\nNo front matter here.\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "page.html", `<html><head><title>Html Chapter</title>
<meta name="description" content="Converted from HTML"></head>
<body><article><h1>Html Chapter</h1><p>Reentrancy guards protect withdrawals from callbacks.</p></article></body></html>`)

	c, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	type summary struct {
		Name, Title, Description, URI string
	}
	got := lo.Map(c.Documents(), func(d Document, _ int) summary {
		return summary{Name: d.Name, Title: d.Title, Description: d.Description, URI: d.URI}
	})
	want := []summary{
		{Name: "page", Title: "Html Chapter", Description: "Converted from HTML", URI: URIPrefix + "page.md"},
		{Name: "untitled", Title: "Heading Title", URI: URIPrefix + "untitled.md"},
		{Name: "first-chapter", Title: "First", Description: "The first one", URI: URIPrefix + "first-chapter.md"},
		{Name: "second", Title: "Second", URI: URIPrefix + "second.md"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadDir() mismatch (-want +got):\n%s", diff)
	}

	second, ok := c.ByName("second")
	if !ok || second.Text != "Body two.\n" {
		t.Errorf("ByName(second) = %+v, %v", second, ok)
	}
	page, _ := c.ByName("page")
	if strings.TrimSpace(page.Text) == "" {
		t.Error("HTML chapter converted to empty text")
	}
}

func TestLoadDirErrors(t *testing.T) {
	empty := t.TempDir()
	untitled := t.TempDir()
	writeFile(t, untitled, "x.md", "just text, no heading\n")

	tests := []struct {
		name     string
		dir      string
		wantCode ErrorCode
	}{
		{name: "missing dir", dir: filepath.Join(empty, "nope"), wantCode: ReadFailure},
		{name: "empty dir", dir: empty, wantCode: EmptyCorpus},
		{name: "no title", dir: untitled, wantCode: InvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDir(tt.dir)
			if !failure.Is(err, tt.wantCode) {
				t.Errorf("LoadDir() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Document{
		{URI: "file:///a.md", Name: "a"},
		{URI: "file:///a.md", Name: "b"},
	})
	if !failure.Is(err, DuplicateDocument) {
		t.Errorf("New() error = %v, want DuplicateDocument", err)
	}
}

func TestLookup(t *testing.T) {
	c, err := Handbook()
	if err != nil {
		t.Fatalf("Handbook() error = %v", err)
	}
	doc, ok := c.Lookup("file:///handbook/src/state-storage.md")
	if !ok || doc.Name != "state-storage" {
		t.Errorf("Lookup() = %v, %v", doc.Name, ok)
	}
	if _, ok := c.Lookup("file:///handbook/src/missing.md"); ok {
		t.Error("Lookup(missing) ok = true")
	}
}
