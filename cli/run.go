package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/stylusport/handbook-mcp/config"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/log"
	"github.com/stylusport/handbook-mcp/mcp"
	"github.com/stylusport/handbook-mcp/search"
)

var (
	// Command line flags
	configPath string

	// Root command
	rootCmd = &cobra.Command{
		Use:           "stylusport",
		Short:         "StylusPort::Solana handbook and MCP server",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `stylusport serves the StylusPort::Solana handbook, a guide for migrating
Solana programs to Arbitrum Stylus contracts.

Run "stylusport mcp" to start the MCP server for an LLM agent, or use the
search, read and chapters commands to browse the handbook from a terminal.`,
	}

	// Version information
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Version command
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print detailed version information about stylusport",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stylusport version %s\n", buildVersion())
			fmt.Fprintf(out, "  commit: %s\n", buildCommit())
			fmt.Fprintf(out, "  built:  %s\n", Date)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default: $XDG_CONFIG_HOME/"+config.RelPath+")")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcp.Command(buildVersion(), loadConfig))
}

// Run executes the main CLI functionality
func Run() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration and applies its log level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return config.Config{}, failure.Wrap(err, failure.WithCode(config.InvalidConfig))
	}
	return cfg, nil
}

// loadHandbook loads the configured corpus and indexes it.
func loadHandbook() (config.Config, *corpus.Corpus, *search.Index, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, nil, err
	}
	c, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		return cfg, nil, nil, err
	}
	params, err := cfg.SearchParams()
	if err != nil {
		return cfg, nil, nil, err
	}
	index, err := c.Index(params)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, c, index, nil
}

func buildInfoSetting(key string) (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	s, ok := lo.Find(info.Settings, func(s debug.BuildSetting) bool {
		return s.Key == key
	})
	return s.Value, ok && s.Value != ""
}

func buildVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func buildCommit() string {
	if Commit != "none" {
		return Commit
	}
	if rev, ok := buildInfoSetting("vcs.revision"); ok {
		return rev
	}
	return Commit
}
