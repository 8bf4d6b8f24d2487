package cli

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/casino-deployer/internal/config"
	"github.com/pendergraft/casino-deployer/internal/deployments/domain"
)

func createPlanCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would deploy",
		Long: `Load build artifacts and resolve every contract's constructor arguments
without connecting to a chain or signing anything.

EXAMPLES:
  casino-deployer plan
  casino-deployer plan --artifacts ./contracts --builder hardhat
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, &flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runPlan(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return err
	}

	specs, builder, err := loadSpecs(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Artifacts: %s (%s)\n", cfg.Artifacts.Dir, builder.DisplayName())
	fmt.Fprintf(out, "Verification: %s\n\n", planVerification(cfg))

	return writePlan(out, specs)
}

// writePlan resolves every spec and prints the outcome. Resolution
// failures are listed, then reported together.
func writePlan(w io.Writer, specs []domain.ContractSpec) error {
	var errs []error

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCONTRACT\tARITY\tARGUMENTS")
	for i, spec := range specs {
		args, err := spec.Resolve()
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(tw, "%d\t%s\t-\tunsupported: %v\n", i+1, spec.Name, err)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, spec.Name, args.Arity, formatArgs(args))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d contracts cannot be deployed: %w", len(errs), len(specs), errors.Join(errs...))
	}
	return nil
}

func formatArgs(args domain.ResolvedArgs) string {
	if args.Arity == 0 {
		return "(none)"
	}
	parts := args.Strings()
	for i, p := range parts {
		if _, ok := args.Values[i].(string); ok {
			parts[i] = fmt.Sprintf("%q", p)
		}
	}
	return strings.Join(parts, ", ")
}

func planVerification(cfg *config.Config) string {
	var chainID *big.Int
	if cfg.Network.ChainID != 0 {
		chainID = big.NewInt(cfg.Network.ChainID)
	}
	if reason := verificationSkipReason(cfg, chainID); reason != "" {
		return "skipped (" + reason + ")"
	}
	plan := fmt.Sprintf("one attempt per contract, %ds after deployment", cfg.Verification.SettleDelay)
	if cfg.Verification.APIKey == "" {
		plan += " (will fail: no Etherscan API key configured)"
	}
	return plan
}
