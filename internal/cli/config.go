package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/casino-deployer/internal/config"
)

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a deployer.toml configuration file in the current directory.

The file holds network, artifact, verification and metrics settings.
Secrets are better kept in the environment (DEPLOYER_PRIVATE_KEY,
ETHERSCAN_API_KEY).

EXAMPLES:
  casino-deployer config init
  casino-deployer config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = config.DefaultFile
			}
			return runConfigInit(cmd.OutOrStdout(), path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the configuration sources and the effective settings.

Secrets are masked.

EXAMPLES:
  casino-deployer config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runConfigShow(cmd.OutOrStdout(), cfg)
		},
	}
}

func runConfigInit(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(config.Template), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(w, "Created %s\n", path)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  1. Edit %s to point at your network\n", path)
	fmt.Fprintln(w, "  2. export DEPLOYER_PRIVATE_KEY=0x... and ETHERSCAN_API_KEY=...")
	fmt.Fprintln(w, "  3. Run 'casino-deployer plan' to check constructor arguments")
	fmt.Fprintln(w, "  4. Run 'casino-deployer run' to deploy")

	return nil
}

// envVars are listed by config show, secrets flagged for masking
var envVars = []struct {
	name   string
	secret bool
}{
	{"RPC_URL", false},
	{"CHAIN_ID", false},
	{"DEPLOYER_PRIVATE_KEY", true},
	{"PRIVATE_KEY", true},
	{"ARTIFACTS_DIR", false},
	{"BUILDER", false},
	{"MANIFEST", false},
	{"VERIFY_ENABLED", false},
	{"ETHERSCAN_API_URL", false},
	{"ETHERSCAN_API_KEY", true},
	{"VERIFY_SETTLE_DELAY_SECONDS", false},
	{"PUSHGATEWAY_URL", false},
	{"METRICS_ENABLED", false},
	{"LOG_LEVEL", false},
	{"OUTPUT_FORMAT", false},
}

func runConfigShow(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "Configuration sources (in order of precedence):")
	fmt.Fprintln(w)

	// 1. Command line flags
	fmt.Fprintln(w, "1. Command line flags")
	fmt.Fprintln(w, "   --rpc-url, --etherscan-api-key, --log-level, --output, --config")
	fmt.Fprintln(w)

	// 2. Environment variables
	fmt.Fprintln(w, "2. Environment variables")
	for _, v := range envVars {
		value := os.Getenv(v.name)
		switch {
		case value == "":
			continue
		case v.secret:
			fmt.Fprintf(w, "   %s=%s\n", v.name, maskAPIKey(value))
		default:
			fmt.Fprintf(w, "   %s=%s\n", v.name, value)
		}
	}
	fmt.Fprintln(w)

	// 3. Project config
	path := cfgFile
	if path == "" {
		path = config.DefaultFile
	}
	fmt.Fprintf(w, "3. Project config (%s)\n", path)
	printFileStatus(w, path)
	fmt.Fprintln(w)

	// 4. Global config
	fmt.Fprintf(w, "4. Global config (%s)\n", globalConfigPath())
	printFileStatus(w, globalConfigPath())
	fmt.Fprintln(w)

	// Effective config
	fmt.Fprintln(w, "Effective configuration:")
	fmt.Fprintf(w, "   RPC URL:       %s\n", cfg.Network.RPCURL)
	if cfg.Network.ChainID != 0 {
		fmt.Fprintf(w, "   Chain ID:      %d\n", cfg.Network.ChainID)
	} else {
		fmt.Fprintln(w, "   Chain ID:      (detect from RPC)")
	}
	if cfg.Deployer.PrivateKey != "" {
		fmt.Fprintf(w, "   Deployer key:  %s\n", maskAPIKey(cfg.Deployer.PrivateKey))
	} else {
		fmt.Fprintln(w, "   Deployer key:  (prompt)")
	}
	fmt.Fprintf(w, "   Artifacts:     %s (builder: %s)\n", cfg.Artifacts.Dir, cfg.Artifacts.Builder)
	if cfg.Artifacts.Manifest != "" {
		fmt.Fprintf(w, "   Manifest:      %s\n", cfg.Artifacts.Manifest)
	} else {
		fmt.Fprintln(w, "   Manifest:      (built-in)")
	}
	fmt.Fprintf(w, "   Verification:  enabled=%t settle=%ds polls=%dx%ds\n",
		cfg.Verification.Enabled, cfg.Verification.SettleDelay, cfg.Verification.MaxPolls, cfg.Verification.PollInterval)
	fmt.Fprintf(w, "   Explorer API:  %s\n", cfg.Verification.APIURL)
	if cfg.Verification.APIKey != "" {
		fmt.Fprintf(w, "   API Key:       %s\n", maskAPIKey(cfg.Verification.APIKey))
	} else {
		fmt.Fprintln(w, "   API Key:       (not set)")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.PushgatewayURL != "" {
		fmt.Fprintf(w, "   Metrics:       push to %s (job %s)\n", cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	} else {
		fmt.Fprintln(w, "   Metrics:       (disabled)")
	}
	fmt.Fprintf(w, "   Output:        %s\n", cfg.Output.Format)

	return nil
}

func printFileStatus(w io.Writer, path string) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "   (not found)")
		} else {
			fmt.Fprintf(w, "   Error: %v\n", err)
		}
		return
	}
	fmt.Fprintf(w, "   Loaded from: %s\n", path)
}
