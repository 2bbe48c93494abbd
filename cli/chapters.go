package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/stylusport/handbook-mcp/corpus"
)

var (
	chaptersFormat outputFormatFlag

	chaptersCmd = &cobra.Command{
		Use:   "chapters",
		Short: "List handbook chapters and their resource URIs",
		Long:  "Display the handbook chapters in reading order with the resource URIs the MCP server exposes them under",
		Args:  cobra.NoArgs,
		RunE:  runChapters,
	}

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func init() {
	chaptersCmd.Flags().VarP(&chaptersFormat, "output", "o", "Output format: text or json")
	rootCmd.AddCommand(chaptersCmd)
}

type chapterEntry struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URI         string `json:"uri"`
	URL         string `json:"url,omitempty"`
}

func runChapters(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		return err
	}

	docs := c.Documents()
	if chaptersFormat.Value == formatJSON {
		entries := make([]chapterEntry, 0, len(docs))
		for _, d := range docs {
			entries = append(entries, chapterEntry{
				Name:        d.Name,
				Title:       d.Title,
				Description: d.Description,
				URI:         d.URI,
				URL:         d.URL,
			})
		}
		return writeJSON(cmd.OutOrStdout(), entries)
	}

	fmt.Fprintln(cmd.OutOrStdout(), chaptersTable(docs))
	return nil
}

func chaptersTable(docs []corpus.Document) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "NAME", "TITLE", "URI").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for i, d := range docs {
		t.Row(strconv.Itoa(i+1), d.Name, d.Title, d.URI)
	}
	return t.String()
}
