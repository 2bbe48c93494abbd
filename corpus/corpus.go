package corpus

import (
	"sort"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/stylusport/handbook-mcp/search"
)

const (
	// MIMEMarkdown is the MIME type of every served chapter.
	MIMEMarkdown = "text/markdown"
	// URIPrefix is prepended to a chapter file name to form its URI.
	URIPrefix = "file:///handbook/src/"
)

// Document is one handbook chapter.
type Document struct {
	URI         string
	Name        string
	Title       string
	Description string
	MIMEType    string
	// URL is the published web page of the chapter, if any.
	URL   string
	Order int
	Text  string
}

// SearchDocument splits the chapter into the fields of search.DefaultParams.
func (d Document) SearchDocument() search.Document {
	prose, code := splitMarkdown(d.Text)
	return search.Document{
		ID: d.URI,
		Fields: map[string]string{
			search.FieldTitle: d.Title,
			search.FieldBody:  prose,
			search.FieldCode:  code,
		},
	}
}

// Corpus is an immutable, ordered set of chapters.
type Corpus struct {
	docs   []Document
	byURI  map[string]int
	byName map[string]int
}

// New orders docs by Order then Name and rejects duplicate URIs or names.
func New(docs []Document) (*Corpus, error) {
	if len(docs) == 0 {
		return nil, failure.New(EmptyCorpus, failure.Message("corpus has no documents"))
	}
	sorted := append([]Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].Name < sorted[j].Name
	})

	c := &Corpus{
		docs:   sorted,
		byURI:  make(map[string]int, len(sorted)),
		byName: make(map[string]int, len(sorted)),
	}
	for i, d := range sorted {
		if _, dup := c.byURI[d.URI]; dup {
			return nil, failure.New(DuplicateDocument,
				failure.Message("two documents share a URI"),
				failure.Context{"uri": d.URI},
			)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, failure.New(DuplicateDocument,
				failure.Message("two documents share a name"),
				failure.Context{"name": d.Name},
			)
		}
		c.byURI[d.URI] = i
		c.byName[d.Name] = i
	}
	return c, nil
}

// Documents returns the chapters in corpus order.
func (c *Corpus) Documents() []Document {
	return append([]Document(nil), c.docs...)
}

// Len returns the number of chapters.
func (c *Corpus) Len() int {
	return len(c.docs)
}

// Lookup finds a chapter by URI.
func (c *Corpus) Lookup(uri string) (Document, bool) {
	i, ok := c.byURI[uri]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// ByName finds a chapter by name, e.g. "state-storage".
func (c *Corpus) ByName(name string) (Document, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// Index builds a BM25 index over every chapter.
func (c *Corpus) Index(p search.Params) (*search.Index, error) {
	docs := lo.Map(c.docs, func(d Document, _ int) search.Document {
		return d.SearchDocument()
	})
	idx, err := search.NewIndex(docs, p)
	if err != nil {
		return nil, failure.Wrap(err)
	}
	return idx, nil
}
