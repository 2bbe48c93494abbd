package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/stylusport/handbook-mcp/corpus"
)

var (
	// Command line flags
	browserFlag bool
	rawFlag     bool

	readCmd = &cobra.Command{
		Use:   "read <chapter>",
		Short: "Read a handbook chapter",
		Long: `Read a handbook chapter in a terminal pager.

The chapter can be given by name (state-storage), file name (state-storage.md)
or resource URI (file:///handbook/src/state-storage.md). When stdout is not a
terminal the chapter is printed as markdown.`,
		Args: cobra.ExactArgs(1),
		RunE: runRead,
	}
)

func init() {
	readCmd.Flags().BoolVarP(&browserFlag, "browser", "b", false, "Open the published chapter in a browser")
	readCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the chapter markdown without rendering")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		return err
	}
	doc, err := findChapter(c, args[0])
	if err != nil {
		return err
	}

	if browserFlag {
		if doc.URL == "" {
			return failure.New(NoChapterURL,
				failure.Message("Chapter has no published URL"),
				failure.Context{"chapter": doc.Name},
			)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Opening chapter in browser: %s\n", doc.URL)
		if err := browser.OpenURL(doc.URL); err != nil {
			return failure.Wrap(err)
		}
		return nil
	}

	if rawFlag || !isTerminal(os.Stdout) {
		_, err := fmt.Fprint(cmd.OutOrStdout(), doc.Text)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return failure.Wrap(err, failure.WithCode(RenderFailure))
	}
	out, err := renderer.Render(doc.Text)
	if err != nil {
		return failure.Wrap(err, failure.WithCode(RenderFailure))
	}
	if err := RunPager(doc.Title, out); err != nil {
		return failure.Wrap(err, failure.WithCode(RenderFailure))
	}
	return nil
}

// findChapter resolves a chapter by name, file name or URI.
func findChapter(c *corpus.Corpus, ref string) (corpus.Document, error) {
	if doc, ok := c.Lookup(ref); ok {
		return doc, nil
	}
	if doc, ok := c.ByName(strings.TrimSuffix(ref, ".md")); ok {
		return doc, nil
	}
	if doc, ok := c.Lookup(corpus.URIPrefix + ref); ok {
		return doc, nil
	}
	return corpus.Document{}, failure.New(ChapterNotFound,
		failure.Message("Chapter not found: "+ref+` (run "stylusport chapters" to list them)`),
		failure.Context{"chapter": ref},
	)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
