package mcp

import (
	"bytes"
	"context"
	"embed"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/registry"
)

//go:embed prompts/*.md
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.md"))

type promptFunc func() (prompt mcp.Prompt, handler registry.HandlerFunc)

func (s *Session) registerPrompts() error {
	for _, build := range []promptFunc{
		s.PlanSolanaProgramStylusMigration,
	} {
		prompt, handler := build()
		err := s.prompts.Register(registry.Spec[mcp.Prompt]{
			Name:       prompt.Name,
			Descriptor: prompt,
			Schema:     promptSchema(prompt),
			Handler:    handler,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// promptSchema declares every prompt argument as a string.
func promptSchema(p mcp.Prompt) registry.Schema {
	schema := registry.Schema{Properties: make(map[string]registry.Property, len(p.Arguments))}
	for _, arg := range p.Arguments {
		schema.Properties[arg.Name] = registry.Property{Type: registry.String}
		if arg.Required {
			schema.Required = append(schema.Required, arg.Name)
		}
	}
	return schema
}

func (s *Session) PlanSolanaProgramStylusMigration() (prompt mcp.Prompt, handler registry.HandlerFunc) {
	const name = "plan_solana_program_stylus_migration"
	return mcp.NewPrompt(name,
			mcp.WithPromptDescription("Prompts an LLM agent to plan for Solana program migration with the aid of the StylusPort::Solana handbook and MCP server"),
			mcp.WithArgument("program_kind",
				mcp.ArgumentDescription("Kind of the Solana program, 'anchor' or 'native', when already known"),
			),
		), func(ctx context.Context, raw map[string]any) (any, error) {
			type PromptArguments struct {
				ProgramKind string `json:"program_kind" validate:"omitempty,oneof=anchor native"`
			}
			var args PromptArguments
			if err := registry.Decode(ctx, raw, &args); err != nil {
				return nil, err
			}

			var buf bytes.Buffer
			err := promptTemplates.ExecuteTemplate(&buf, name+".md", struct {
				ProgramKind string
				Chapters    []corpus.Document
			}{
				ProgramKind: args.ProgramKind,
				Chapters:    s.corpus.Documents(),
			})
			if err != nil {
				return nil, failure.Wrap(err, failure.Context{"prompt": name})
			}

			return &mcp.GetPromptResult{
				Description: "Plan Solana Program Migration to Stylus",
				Messages: []mcp.PromptMessage{
					mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(buf.String())),
				},
			}, nil
		}
}
