package corpus

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/log"
)

//go:embed handbook/*.md
var handbookFS embed.FS

type matter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
	URL         string `yaml:"url"`
}

// Handbook returns the chapters compiled into the binary.
func Handbook() (*Corpus, error) {
	return loadFS(handbookFS, "handbook")
}

// LoadDir reads every .md and .html file directly under dir.
func LoadDir(dir string) (*Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, failure.Wrap(err,
			failure.WithCode(ReadFailure),
			failure.Message("corpus directory is not readable"),
			failure.Context{"dir": dir},
		)
	}
	if !info.IsDir() {
		return nil, failure.New(ReadFailure,
			failure.Message("corpus path is not a directory"),
			failure.Context{"dir": dir},
		)
	}
	return loadFS(os.DirFS(dir), ".")
}

// Load reads dir, or the built-in handbook when dir is empty.
func Load(dir string) (*Corpus, error) {
	if dir == "" {
		return Handbook()
	}
	return LoadDir(dir)
}

type parseFunc func(name string, data []byte) (Document, error)

func loadFS(fsys fs.FS, root string) (*Corpus, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ReadFailure), failure.Context{"dir": root})
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		var parse parseFunc
		switch ext {
		case ".md", ".markdown":
			parse = parseMarkdown
		case ".html", ".htm":
			parse = parseHTML
		default:
			log.Debug("Skipping non-chapter file", "file", e.Name())
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ReadFailure), failure.Context{"file": e.Name()})
		}
		name := strings.ReplaceAll(strings.TrimSuffix(e.Name(), path.Ext(e.Name())), "_", "-")
		doc, err := parse(name, data)
		if err != nil {
			return nil, err
		}
		log.Debug("Loaded chapter", "uri", doc.URI, "bytes", len(doc.Text))
		docs = append(docs, doc)
	}
	return New(docs)
}

func newDocument(name string) Document {
	return Document{
		URI:      URIPrefix + name + ".md",
		Name:     name,
		MIMEType: MIMEMarkdown,
	}
}

func parseMarkdown(name string, data []byte) (Document, error) {
	var m matter
	body, err := frontmatter.Parse(bytes.NewReader(data), &m)
	if err != nil {
		return Document{}, failure.Wrap(err,
			failure.WithCode(InvalidDocument),
			failure.Message("chapter front matter is malformed"),
			failure.Context{"name": name},
		)
	}

	doc := newDocument(name)
	doc.Text = strings.TrimLeft(string(body), "\n")
	doc.Title = m.Title
	if doc.Title == "" {
		doc.Title = firstHeading(doc.Text)
	}
	if doc.Title == "" {
		return Document{}, failure.New(InvalidDocument,
			failure.Message("chapter has no title"),
			failure.Context{"name": name},
		)
	}
	doc.Description = m.Description
	doc.URL = m.URL
	doc.Order = m.Order
	return doc, nil
}
