package search

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// FieldSpec describes how one document field is tokenized and weighted.
type FieldSpec struct {
	Name   string
	Mode   Mode
	Weight float64
	// B is the length normalization strength for this field.
	B float64
}

// Params holds the BM25 tuning of an index.
type Params struct {
	K1     float64
	Fields []FieldSpec
}

// Field names used by DefaultParams.
const (
	FieldTitle = "title"
	FieldBody  = "body"
	FieldCode  = "code"
)

// DefaultParams returns k1=1.2 with a title field weighted above body prose
// and a code field normalized less aggressively than prose.
func DefaultParams() Params {
	return Params{
		K1: 1.2,
		Fields: []FieldSpec{
			{Name: FieldTitle, Mode: Prose, Weight: 2.0, B: 0.75},
			{Name: FieldBody, Mode: Prose, Weight: 1.0, B: 0.75},
			{Name: FieldCode, Mode: Code, Weight: 1.0, B: 0.5},
		},
	}
}

// Document is one unit of the corpus as seen by the index.
type Document struct {
	ID     string
	Fields map[string]string
}

// Hit is a scored search result.
type Hit struct {
	ID    string
	Score float64
}

type posting struct {
	doc  int
	freq int
}

type fieldIndex struct {
	spec     FieldSpec
	postings map[string][]posting
	lengths  []int
	avgLen   float64
}

// Index is an immutable BM25 index. It is safe for concurrent use.
type Index struct {
	k1     float64
	ids    []string
	byID   map[string]int
	fields []fieldIndex
	df     map[string]int
}

// NewIndex builds an index over docs. Document order fixes the internal
// ordinals only; results never depend on it.
func NewIndex(docs []Document, p Params) (*Index, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	idx := &Index{
		k1:     p.K1,
		ids:    make([]string, 0, len(docs)),
		byID:   make(map[string]int, len(docs)),
		fields: make([]fieldIndex, len(p.Fields)),
		df:     make(map[string]int),
	}
	fieldPos := make(map[string]int, len(p.Fields))
	for i, spec := range p.Fields {
		fieldPos[spec.Name] = i
		idx.fields[i] = fieldIndex{
			spec:     spec,
			postings: make(map[string][]posting),
			lengths:  make([]int, len(docs)),
		}
	}

	for ord, doc := range docs {
		if _, dup := idx.byID[doc.ID]; dup {
			return nil, failure.New(DuplicateDocument,
				failure.Message("Document added twice"),
				failure.Context{"id": doc.ID},
			)
		}
		idx.byID[doc.ID] = ord
		idx.ids = append(idx.ids, doc.ID)

		for name := range doc.Fields {
			if _, ok := fieldPos[name]; !ok {
				return nil, failure.New(UnknownField,
					failure.Message("Document has a field the index does not declare"),
					failure.Context{"id": doc.ID, "field": name},
				)
			}
		}

		inDoc := make(map[string]struct{})
		for i := range idx.fields {
			f := &idx.fields[i]
			terms := Tokenize(doc.Fields[f.spec.Name], f.spec.Mode)
			f.lengths[ord] = len(terms)

			freq := make(map[string]int, len(terms))
			for _, t := range terms {
				freq[t]++
			}
			for t, n := range freq {
				f.postings[t] = append(f.postings[t], posting{doc: ord, freq: n})
				inDoc[t] = struct{}{}
			}
		}
		for t := range inDoc {
			idx.df[t]++
		}
	}

	if len(docs) > 0 {
		for i := range idx.fields {
			f := &idx.fields[i]
			total := lo.Sum(f.lengths)
			f.avgLen = float64(total) / float64(len(docs))
		}
	}
	return idx, nil
}

// Validate checks k1 and the field specs.
func (p Params) Validate() error {
	if p.K1 <= 0 {
		return failure.New(InvalidParams,
			failure.Message("k1 must be positive"),
			failure.Context{"k1": formatFloat(p.K1)},
		)
	}
	if len(p.Fields) == 0 {
		return failure.New(InvalidParams, failure.Message("at least one field is required"))
	}
	seen := make(map[string]struct{}, len(p.Fields))
	for _, f := range p.Fields {
		if _, dup := seen[f.Name]; dup || f.Name == "" {
			return failure.New(InvalidParams,
				failure.Message("field names must be unique and non-empty"),
				failure.Context{"field": f.Name},
			)
		}
		seen[f.Name] = struct{}{}
		if f.B < 0 || f.B > 1 || f.Weight < 0 {
			return failure.New(InvalidParams,
				failure.Message("field b must be within [0,1] and weight non-negative"),
				failure.Context{"field": f.Name, "b": formatFloat(f.B), "weight": formatFloat(f.Weight)},
			)
		}
	}
	return nil
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Search returns at most topK documents sharing a term with query, best
// first. Ties are broken by ascending ID.
func (idx *Index) Search(query string, topK int) []Hit {
	if topK <= 0 || strings.TrimSpace(query) == "" || len(idx.ids) == 0 {
		return nil
	}

	scores := idx.scoreAll(query)
	var hits []Hit
	for ord, s := range scores {
		if s > 0 {
			hits = append(hits, Hit{ID: idx.ids[ord], Score: s})
		}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Score returns the BM25 score of a single document for query. The second
// result is false when id is not indexed.
func (idx *Index) Score(query, id string) (float64, bool) {
	ord, ok := idx.byID[id]
	if !ok {
		return 0, false
	}
	if strings.TrimSpace(query) == "" {
		return 0, true
	}
	return idx.scoreAll(query)[ord], true
}

func (idx *Index) scoreAll(query string) []float64 {
	scores := make([]float64, len(idx.ids))
	for _, f := range idx.fields {
		if f.avgLen == 0 || f.spec.Weight == 0 {
			continue
		}
		for _, term := range lo.Uniq(Tokenize(query, f.spec.Mode)) {
			plist, ok := f.postings[term]
			if !ok {
				continue
			}
			idf := idx.idf(term)
			for _, p := range plist {
				tf := float64(p.freq)
				norm := 1 - f.spec.B + f.spec.B*float64(f.lengths[p.doc])/f.avgLen
				scores[p.doc] += f.spec.Weight * idf * tf * (idx.k1 + 1) / (tf + idx.k1*norm)
			}
		}
	}
	return scores
}

// idf is the non-negative Lucene variant.
func (idx *Index) idf(term string) float64 {
	n := float64(len(idx.ids))
	df := float64(idx.df[term])
	return math.Log1p((n - df + 0.5) / (df + 0.5))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
