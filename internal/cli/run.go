package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/casino-deployer/internal/chains"
	"github.com/pendergraft/casino-deployer/internal/chains/evm"
	"github.com/pendergraft/casino-deployer/internal/config"
	"github.com/pendergraft/casino-deployer/internal/contracts"
	"github.com/pendergraft/casino-deployer/internal/deployments/domain"
	"github.com/pendergraft/casino-deployer/internal/observability/metrics"
	verification "github.com/pendergraft/casino-deployer/internal/verification/domain"
	"github.com/pendergraft/casino-deployer/internal/verification/etherscan"
)

// devChainIDs are local node chains no explorer indexes
var devChainIDs = map[int64]bool{
	31337: true, // anvil, hardhat
	1337:  true, // ganache, geth --dev
}

// runFlags are the run and plan overrides on top of the loaded config
type runFlags struct {
	artifactsDir string
	builder      string
	manifest     string
	noVerify     bool
	settleDelay  time.Duration
	summaryFile  string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.artifactsDir, "artifacts", "", "project directory containing build output (default from config)")
	cmd.Flags().StringVar(&f.builder, "builder", "", "build tool: foundry, hardhat, auto")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "YAML contract manifest (default: built-in list)")
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if f.artifactsDir != "" {
		cfg.Artifacts.Dir = f.artifactsDir
	}
	if f.builder != "" {
		cfg.Artifacts.Builder = f.builder
	}
	if f.manifest != "" {
		cfg.Artifacts.Manifest = f.manifest
	}
	if f.noVerify {
		cfg.Verification.Enabled = false
	}
	if cmd.Flags().Changed("settle-delay") {
		if f.settleDelay < 0 || f.settleDelay%time.Second != 0 {
			return fmt.Errorf("--settle-delay must be a non-negative whole number of seconds, got %s", f.settleDelay)
		}
		cfg.Verification.SettleDelay = int(f.settleDelay / time.Second)
	}
	if f.summaryFile != "" {
		cfg.Output.SummaryFile = f.summaryFile
	}
	return nil
}

func createRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy and verify all contracts",
		Long: `Deploy every contract in order, then make one verification attempt each.

Each contract's constructor arguments are chosen by the number of parameters
its compiled constructor declares. A contract whose constructor shape has no
declared arguments stops the run before anything is sent for it.

Verification waits for the settle delay after deployment and never fails
the run. It is skipped when disabled or on local development chains (31337,
1337). Without an Etherscan API key the attempt is made and fails.

EXAMPLES:
  # Deploy using deployer.toml and environment
  export DEPLOYER_PRIVATE_KEY=0x...
  export ETHERSCAN_API_KEY=...
  casino-deployer run --rpc-url https://sepolia.example.org

  # Deploy to a local anvil node without verification
  casino-deployer run --rpc-url http://127.0.0.1:8545 --no-verify

  # Write the summary for CI
  casino-deployer run -o json --summary-file deployments.json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "skip source verification")
	cmd.Flags().DurationVar(&flags.settleDelay, "settle-delay", 0, "wait between deployment and verification (default from config, 30s)")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "write the JSON summary to this file")

	return cmd
}

func runDeploy(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := setupLogger(cfg, cmd.ErrOrStderr())

	specs, builder, err := loadSpecs(cfg)
	if err != nil {
		return err
	}
	logger.Debug("artifacts loaded", "builder", builder.Name(), "contracts", contracts.Names(specs))

	key, err := loadPrivateKey(cfg.Deployer.PrivateKey, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	metrics.Init(cfg.Metrics.Enabled, cfg.Metrics.Job)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := evm.Dial(ctx, cfg.Network.RPCURL, key,
		evm.WithPollInterval(time.Duration(cfg.Network.ReceiptPollInterval)*time.Millisecond),
		evm.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer chain.Close()

	fmt.Fprintf(out, "Deployer: %s (chain %s)\n\n", chain.From().Hex(), chain.ChainID())

	newVerifier := func(chainID int64) domain.Verifier {
		client := etherscan.New(cfg.Verification.APIURL, cfg.Verification.APIKey, chainID,
			etherscan.WithRateLimit(cfg.Verification.RequestsPerSecond),
			etherscan.WithLogger(logger),
		)
		return verification.NewService(client, chainID,
			verification.WithPolling(time.Duration(cfg.Verification.PollInterval)*time.Second, cfg.Verification.MaxPolls),
			verification.WithLogger(logger),
		)
	}

	summary, runErr := executeRun(ctx, cfg, specs, chain, newVerifier, out, logger)

	// The run context may already be cancelled; the push gets its own.
	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, summary.RunID); err != nil {
		logger.Warn("pushing metrics", "error", err)
	}

	if err := writeSummary(out, summary, runErr, cfg.Output.Format); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if cfg.Output.SummaryFile != "" {
		if err := writeSummaryFile(cfg.Output.SummaryFile, summary, runErr); err != nil {
			return err
		}
		logger.Info("summary written", "path", cfg.Output.SummaryFile)
	}

	if runErr != nil {
		return fmt.Errorf("deployment run failed: %w", runErr)
	}
	return nil
}

// deployChain is the chain connection a run needs
type deployChain interface {
	domain.Chain
	ChainID() *big.Int
}

// executeRun wires the orchestrator to a connected chain and runs it
func executeRun(
	ctx context.Context,
	cfg *config.Config,
	specs []domain.ContractSpec,
	chain deployChain,
	newVerifier func(chainID int64) domain.Verifier,
	out io.Writer,
	logger *slog.Logger,
) (*domain.RunSummary, error) {
	chainID := chain.ChainID()
	if cfg.Network.ChainID != 0 && chainID.Cmp(big.NewInt(cfg.Network.ChainID)) != 0 {
		return &domain.RunSummary{ChainID: chainID}, fmt.Errorf("chain ID mismatch: configured %d, RPC endpoint reports %s", cfg.Network.ChainID, chainID)
	}

	opts := []domain.Option{
		domain.WithChainID(chainID),
		domain.WithSettleDelay(time.Duration(cfg.Verification.SettleDelay) * time.Second),
		domain.WithProgress(progressPrinter(out)),
		domain.WithLogger(logger),
	}
	if reason := verificationSkipReason(cfg, chainID); reason != "" {
		opts = append(opts, domain.WithoutVerification(reason))
	} else {
		opts = append(opts, domain.WithVerifier(newVerifier(chainID.Int64())))
	}

	orchestrator := domain.NewOrchestrator(chain, opts...)
	summary, err := orchestrator.Run(ctx, specs)
	metrics.RunFinished(chainID.String(), err == nil)
	return summary, err
}

// verificationSkipReason explains why verification will not be attempted,
// or returns "" when it will.
func verificationSkipReason(cfg *config.Config, chainID *big.Int) string {
	switch {
	case !cfg.Verification.Enabled:
		return "verification disabled"
	case chainID != nil && chainID.IsInt64() && devChainIDs[chainID.Int64()]:
		return fmt.Sprintf("local development chain %s", chainID)
	}
	return ""
}

// loadSpecs reads the contract list and binds each entry to its build artifact
func loadSpecs(cfg *config.Config) ([]domain.ContractSpec, chains.Builder, error) {
	specs, err := contracts.Load(cfg.Artifacts.Manifest)
	if err != nil {
		return nil, nil, err
	}

	builder, err := evm.SelectBuilder(cfg.Artifacts.Builder, cfg.Artifacts.Dir)
	if err != nil {
		return nil, nil, err
	}

	bound, err := domain.BindFactories(specs, evm.NewArtifactLoader(builder, cfg.Artifacts.Dir))
	if err != nil {
		return nil, nil, err
	}
	return bound, builder, nil
}

// progressPrinter writes one console line per pipeline step
func progressPrinter(w io.Writer) func(domain.Event) {
	first := true
	return func(e domain.Event) {
		switch e.Kind {
		case domain.EventDeploying:
			if !first {
				fmt.Fprintln(w)
			}
			first = false
			fmt.Fprintf(w, "Deploying %s...\n", e.Contract)
			if e.Args.Arity > 0 {
				fmt.Fprintf(w, "  constructor(%s)\n", strings.Join(e.Args.Strings(), ", "))
			}
		case domain.EventDeployed:
			fmt.Fprintf(w, "%s deployed to: %s\n", e.Contract, e.Result.Address.Hex())
			if check := e.Result.CodeCheck; check != nil && !check.Match {
				fmt.Fprintf(w, "  warning: %s\n", check.Message)
			}
		case domain.EventAwaitingVerification:
			fmt.Fprintln(w, "Waiting for block confirmations...")
		case domain.EventVerificationSettled:
			v := e.Result.Verification
			switch v.Status {
			case domain.VerificationVerified:
				fmt.Fprintf(w, "%s verified on Etherscan\n", e.Contract)
			case domain.VerificationFailed:
				fmt.Fprintf(w, "Verification failed: %s\n", v.Message)
			case domain.VerificationSkipped:
				fmt.Fprintf(w, "Verification skipped: %s\n", v.Message)
			}
		}
	}
}
