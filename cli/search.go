package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/search"
)

var (
	searchLimit  int
	searchFormat outputFormatFlag

	searchCmd = &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the handbook",
		Long: `Search the handbook with the same BM25 ranking the search_handbook tool uses.
Results are printed in descending order of relevance.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (default: search.default_limit)")
	searchCmd.Flags().VarP(&searchFormat, "output", "o", "Output format: text or json")
	rootCmd.AddCommand(searchCmd)
}

type searchResult struct {
	URI   string  `json:"uri"`
	Name  string  `json:"name"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return failure.New(InvalidArguments, failure.Message("query cannot be an empty string"))
	}

	cfg, c, index, err := loadHandbook()
	if err != nil {
		return err
	}

	limit := cfg.Search.DefaultLimit
	if cmd.Flags().Changed("limit") {
		limit = searchLimit
	}
	if limit < 1 || limit > cfg.Search.MaxLimit {
		return failure.New(InvalidArguments,
			failure.Message(fmt.Sprintf("limit must be between 1 and %d", cfg.Search.MaxLimit)),
			failure.Context{"limit": fmt.Sprint(limit)},
		)
	}

	results := searchResults(c, index.Search(query, limit))
	if searchFormat.Value == formatJSON {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	writeSearchText(cmd.OutOrStdout(), results)
	return nil
}

func searchResults(c *corpus.Corpus, hits []search.Hit) []searchResult {
	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		r := searchResult{URI: h.ID, Score: h.Score}
		if doc, ok := c.Lookup(h.ID); ok {
			r.Name = doc.Name
			r.Title = doc.Title
		}
		results = append(results, r)
	}
	return results
}

func writeSearchText(w io.Writer, results []searchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching chapters.")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. %-8.4f %s\n", i+1, r.Score, r.Title)
		fmt.Fprintf(w, "    %s\n", r.URI)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return failure.Wrap(err)
	}
	return nil
}
