package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/casino-deployer/internal/config"
)

var (
	cfgFile      string
	rpcURL       string
	apiKey       string
	logLevel     string
	outputFormat string
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "casino-deployer",
		Short: "Deploy and verify the FriendshipBracelets and DecentralizedCasino contracts",
		Long: `casino-deployer deploys compiled contracts in a fixed order, waits for each
creation to settle and makes one best-effort source verification attempt
on the block explorer.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "etherscan-api-key", "", "Etherscan API key")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "summary format: text, json, yaml")

	// Add subcommands
	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createPlanCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

// loadConfig resolves settings from flags, env, the project file and the
// global file, in that order of precedence.
func loadConfig() (*config.Config, error) {
	path := config.DefaultFile
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		path = cfgFile
	}

	cfg, err := config.LoadWithGlobal(globalConfigPath(), path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if rpcURL != "" {
		cfg.Network.RPCURL = rpcURL
	}
	if apiKey != "" {
		cfg.Verification.APIKey = apiKey
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
