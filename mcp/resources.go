package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/registry"
)

// registerResources exposes every chapter under its URI.
func (s *Session) registerResources() error {
	for _, doc := range s.corpus.Documents() {
		resource := mcp.NewResource(doc.URI, doc.Name,
			mcp.WithResourceDescription(doc.Description),
			mcp.WithMIMEType(doc.MIMEType),
		)
		err := s.resources.Register(registry.Spec[mcp.Resource]{
			Name:       doc.URI,
			Descriptor: resource,
			Handler:    readChapter(doc),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func readChapter(doc corpus.Document) registry.HandlerFunc {
	return func(ctx context.Context, _ map[string]any) (any, error) {
		return &mcp.ReadResourceResult{
			Contents: []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      doc.URI,
					MIMEType: doc.MIMEType,
					Text:     doc.Text,
				},
			},
		}, nil
	}
}
