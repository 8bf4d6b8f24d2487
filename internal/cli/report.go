package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pendergraft/casino-deployer/internal/deployments/domain"
)

// summaryView is the machine-readable form of a run summary
type summaryView struct {
	RunID      string       `json:"runId" yaml:"run_id"`
	ChainID    string       `json:"chainId,omitempty" yaml:"chain_id,omitempty"`
	StartedAt  time.Time    `json:"startedAt" yaml:"started_at"`
	FinishedAt time.Time    `json:"finishedAt" yaml:"finished_at"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
	Contracts  []resultView `json:"contracts" yaml:"contracts"`
}

type resultView struct {
	Name                string    `json:"name" yaml:"name"`
	Address             string    `json:"address" yaml:"address"`
	TxHash              string    `json:"txHash" yaml:"tx_hash"`
	BlockNumber         uint64    `json:"blockNumber" yaml:"block_number"`
	GasUsed             uint64    `json:"gasUsed" yaml:"gas_used"`
	ConstructorArity    int       `json:"constructorArity" yaml:"constructor_arity"`
	ConstructorArgs     []string  `json:"constructorArgs" yaml:"constructor_args"`
	EncodedArgs         string    `json:"encodedArgs,omitempty" yaml:"encoded_args,omitempty"`
	CodeMatch           string    `json:"codeMatch,omitempty" yaml:"code_match,omitempty"`
	Verification        string    `json:"verification" yaml:"verification"`
	VerificationMessage string    `json:"verificationMessage,omitempty" yaml:"verification_message,omitempty"`
	DeployedAt          time.Time `json:"deployedAt" yaml:"deployed_at"`
}

func newSummaryView(s *domain.RunSummary, runErr error) summaryView {
	view := summaryView{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt.UTC(),
		FinishedAt: s.FinishedAt.UTC(),
		Contracts:  make([]resultView, 0, len(s.Results)),
	}
	if s.ChainID != nil {
		view.ChainID = s.ChainID.String()
	}
	if runErr != nil {
		view.Error = runErr.Error()
	}

	for _, r := range s.Results {
		rv := resultView{
			Name:                r.ContractName,
			Address:             r.Address.Hex(),
			TxHash:              r.TxHash.Hex(),
			BlockNumber:         r.BlockNumber,
			GasUsed:             r.GasUsed,
			ConstructorArity:    r.ConstructorArgs.Arity,
			ConstructorArgs:     r.ConstructorArgs.Strings(),
			Verification:        string(r.Verification.Status),
			VerificationMessage: r.Verification.Message,
			DeployedAt:          r.DeployedAt.UTC(),
		}
		if len(r.ConstructorArgs.Encoded) > 0 {
			rv.EncodedArgs = fmt.Sprintf("0x%x", r.ConstructorArgs.Encoded)
		}
		if r.CodeCheck != nil {
			rv.CodeMatch = r.CodeCheck.MatchType
		}
		view.Contracts = append(view.Contracts, rv)
	}
	return view
}

// writeSummary renders the summary in the requested format
func writeSummary(w io.Writer, s *domain.RunSummary, runErr error, format string) error {
	view := newSummaryView(s, runErr)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeSummaryText(w, view)
	}
}

func writeSummaryText(w io.Writer, view summaryView) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Deployment Summary ===")
	if len(view.Contracts) == 0 {
		fmt.Fprintln(w, "No contracts deployed")
		return nil
	}
	for _, c := range view.Contracts {
		fmt.Fprintf(w, "%s: %s\n", c.Name, c.Address)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTRACT\tBLOCK\tGAS USED\tCODE\tVERIFICATION")
	for _, c := range view.Contracts {
		code := c.CodeMatch
		if code == "" {
			code = "-"
		}
		status := c.Verification
		if c.VerificationMessage != "" {
			status += " (" + c.VerificationMessage + ")"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", c.Name, c.BlockNumber, c.GasUsed, code, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRun %s", view.RunID)
	if view.ChainID != "" {
		fmt.Fprintf(w, " on chain %s", view.ChainID)
	}
	fmt.Fprintf(w, " took %s\n", view.FinishedAt.Sub(view.StartedAt).Round(time.Second))
	return nil
}

// writeSummaryFile stores the JSON summary, replacing any previous file
func writeSummaryFile(path string, s *domain.RunSummary, runErr error) error {
	data, err := json.MarshalIndent(newSummaryView(s, runErr), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
