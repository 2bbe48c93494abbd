package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/config"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/registry"
	"github.com/stylusport/handbook-mcp/scaffold"
	"github.com/stylusport/handbook-mcp/search"
)

const (
	serverName = "stylusport-mcp"

	instructions = "Use the handbook resources and the search_handbook tool to plan migrations of Solana programs to Arbitrum Stylus contracts. " +
		"The generator tools scaffold a Stylus contract crate."
)

// SupportedProtocolVersions lists the accepted protocol versions, latest first.
var SupportedProtocolVersions = append([]string(nil), mcp.ValidProtocolVersions...)

// Session is the state shared read-only by every worker. It is fully
// built by NewSession and never modified afterwards.
type Session struct {
	info      mcp.Implementation
	versions  []string
	tools     *registry.Registry[mcp.Tool]
	resources *registry.Registry[mcp.Resource]
	prompts   *registry.Registry[mcp.Prompt]
	corpus    *corpus.Corpus
	index     *search.Index

	defaultLimit int
	maxLimit     int
	scaffold     scaffold.Versions
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	Version      string
	Corpus       *corpus.Corpus
	Search       search.Params
	DefaultLimit int
	MaxLimit     int
	Versions     scaffold.Versions
}

// NewSession indexes the corpus and registers every tool, resource and
// prompt.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Corpus == nil {
		return nil, failure.New(corpus.EmptyCorpus, failure.Message("session needs a corpus"))
	}
	index, err := opts.Corpus.Index(opts.Search)
	if err != nil {
		return nil, err
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = min(5, opts.MaxLimit)
	}

	s := &Session{
		info:         mcp.Implementation{Name: serverName, Version: opts.Version},
		versions:     SupportedProtocolVersions,
		tools:        registry.New[mcp.Tool](),
		resources:    registry.New[mcp.Resource](),
		prompts:      registry.New[mcp.Prompt](),
		corpus:       opts.Corpus,
		index:        index,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		scaffold:     opts.Versions.WithDefaults(),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	if err := s.registerResources(); err != nil {
		return nil, err
	}
	if err := s.registerPrompts(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSessionFromConfig loads the configured corpus and builds a session.
func NewSessionFromConfig(cfg config.Config, version string) (*Session, error) {
	c, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		return nil, err
	}
	params, err := cfg.SearchParams()
	if err != nil {
		return nil, err
	}
	return NewSession(SessionOptions{
		Version:      version,
		Corpus:       c,
		Search:       params,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		Versions:     cfg.Scaffold.Versions,
	})
}

// Corpus returns the served chapters.
func (s *Session) Corpus() *corpus.Corpus {
	return s.corpus
}

// Index returns the search index over the corpus.
func (s *Session) Index() *search.Index {
	return s.index
}

// schemaOf converts a tool input schema into a registry schema.
func schemaOf(in mcp.ToolInputSchema) registry.Schema {
	out := registry.Schema{
		Properties: make(map[string]registry.Property, len(in.Properties)),
		Required:   in.Required,
	}
	for name, p := range in.Properties {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if typ, ok := prop["type"].(string); ok {
			out.Properties[name] = registry.Property{Type: registry.Type(typ)}
		}
	}
	return out
}
