package mcp

import (
	"context"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/stylusport/handbook-mcp/registry"
	"github.com/stylusport/handbook-mcp/scaffold"
	"github.com/stylusport/handbook-mcp/search"
)

type toolFunc func() (tool mcp.Tool, handler registry.HandlerFunc)

func (s *Session) registerTools() error {
	for _, build := range []toolFunc{
		s.DetectSolanaProgramKind,
		s.GenerateStylusContractCargoManifest,
		s.GenerateStylusContractMainRS,
		s.SearchHandbook,
	} {
		tool, handler := build()
		err := s.tools.Register(registry.Spec[mcp.Tool]{
			Name:       tool.Name,
			Descriptor: tool,
			Schema:     schemaOf(tool.InputSchema),
			Handler:    handler,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) DetectSolanaProgramKind() (tool mcp.Tool, handler registry.HandlerFunc) {
	return mcp.NewTool(
			"detect_solana_program_kind",
			mcp.WithDescription("Detect the kind of a Solana program, either 'native' or 'anchor', from its Cargo.toml file"),
			mcp.WithTitleAnnotation("Detect Solana Program Kind"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithString("cargo_manifest", mcp.Required(), mcp.Description("Solana program Cargo.toml file")),
		), func(ctx context.Context, raw map[string]any) (any, error) {
			type ToolArguments struct {
				CargoManifest string `json:"cargo_manifest" validate:"required"`
			}
			var args ToolArguments
			if err := registry.Decode(ctx, raw, &args); err != nil {
				return nil, err
			}

			kind, err := scaffold.DetectProgramKind(args.CargoManifest)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(kind)), nil
		}
}

type packageNameArguments struct {
	PackageName string `json:"package_name" validate:"required"`
}

func (s *Session) GenerateStylusContractCargoManifest() (tool mcp.Tool, handler registry.HandlerFunc) {
	return mcp.NewTool(
			"generate_stylus_contract_cargo_manifest",
			mcp.WithDescription("Generate the Cargo.toml file for a Stylus contract"),
			mcp.WithTitleAnnotation("Generate Stylus Contract Cargo.toml"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithString("package_name", mcp.Required(), mcp.Description("Stylus contract package name")),
		), func(ctx context.Context, raw map[string]any) (any, error) {
			var args packageNameArguments
			if err := registry.Decode(ctx, raw, &args); err != nil {
				return nil, err
			}

			manifest, err := scaffold.CargoManifest(args.PackageName, s.scaffold)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(manifest), nil
		}
}

func (s *Session) GenerateStylusContractMainRS() (tool mcp.Tool, handler registry.HandlerFunc) {
	return mcp.NewTool(
			"generate_stylus_contract_main_rs",
			mcp.WithDescription("Generate the main.rs file for a Stylus contract"),
			mcp.WithTitleAnnotation("Generate Stylus Contract main.rs"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithString("package_name", mcp.Required(), mcp.Description("Stylus contract package name")),
		), func(ctx context.Context, raw map[string]any) (any, error) {
			var args packageNameArguments
			if err := registry.Decode(ctx, raw, &args); err != nil {
				return nil, err
			}

			mainRS, err := scaffold.MainRS(args.PackageName)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(mainRS), nil
		}
}

func (s *Session) SearchHandbook() (tool mcp.Tool, handler registry.HandlerFunc) {
	return mcp.NewTool(
			"search_handbook",
			mcp.WithDescription("Search the StylusPort::Solana Handbook, receiving a list of resource URIs in descending order of relevance score"),
			mcp.WithTitleAnnotation("Search StylusPort::Solana Handbook"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of resource URIs to return"),
				mcp.Min(1),
				mcp.Max(float64(s.maxLimit)),
				mcp.DefaultNumber(float64(s.defaultLimit)),
				integerType(),
			),
		), func(ctx context.Context, raw map[string]any) (any, error) {
			type ToolArguments struct {
				Query string `json:"query"`
				Limit *int   `json:"limit" validate:"omitempty,min=1"`
			}
			var args ToolArguments
			if err := registry.Decode(ctx, raw, &args); err != nil {
				return nil, err
			}
			if args.Query == "" {
				return nil, failure.New(EmptyQuery, failure.Message("query cannot be an empty string"))
			}
			limit := s.defaultLimit
			if args.Limit != nil {
				limit = *args.Limit
			}
			if limit > s.maxLimit {
				return nil, registry.InvalidParam("limit", "must be at most "+strconv.Itoa(s.maxLimit))
			}

			hits := s.index.Search(args.Query, limit)
			return &mcp.CallToolResult{
				Content: lo.Map(hits, func(h search.Hit, _ int) mcp.Content {
					return mcp.NewTextContent(h.ID)
				}),
			}, nil
		}
}

// integerType narrows a number property to whole numbers.
func integerType() mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["type"] = string(registry.Integer)
	}
}
