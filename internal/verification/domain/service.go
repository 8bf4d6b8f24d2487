package domain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	deployments "github.com/pendergraft/casino-deployer/internal/deployments/domain"
	"github.com/pendergraft/casino-deployer/internal/validation"
)

// Default status polling for a submitted verification.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 12
)

// Common errors returned by the verification service.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidChainID = errors.New("invalid chain ID")
	ErrNoSourceInput  = errors.New("build output has no compiler input for verification")
	ErrCompiler       = errors.New("unusable compiler version")
	ErrNotVerified    = errors.New("explorer rejected verification")
	ErrStillPending   = errors.New("verification still pending")
)

// Explorer submits source verifications and reports their status.
type Explorer interface {
	Submit(ctx context.Context, sub Submission) (guid string, err error)
	Status(ctx context.Context, guid string) (*Status, error)
}

// Service verifies deployed contracts on a block explorer.
// It implements the deployment pipeline's Verifier.
type Service struct {
	explorer     Explorer
	chainID      int64
	pollInterval time.Duration
	maxPolls     int
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPolling sets how often and how many times the status is checked.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(s *Service) {
		if interval > 0 {
			s.pollInterval = interval
		}
		if maxPolls > 0 {
			s.maxPolls = maxPolls
		}
	}
}

// WithSleep replaces the wait between status checks.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		s.sleep = sleep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new verification service.
func NewService(explorer Explorer, chainID int64, opts ...Option) *Service {
	s := &Service{
		explorer:     explorer,
		chainID:      chainID,
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
		sleep:        sleepContext,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifySource submits the contract's source once and waits for the
// explorer's verdict. Any failure is returned to the caller.
func (s *Service) VerifySource(ctx context.Context, req deployments.VerifyRequest) error {
	sub, err := s.buildSubmission(req)
	if err != nil {
		return err
	}

	guid, err := s.explorer.Submit(ctx, *sub)
	if err != nil {
		return fmt.Errorf("submitting verification: %w", err)
	}
	s.logger.Debug("verification submitted", "contract", req.ContractName, "guid", guid)

	for i := 0; i < s.maxPolls; i++ {
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return err
		}

		status, err := s.explorer.Status(ctx, guid)
		if err != nil {
			return fmt.Errorf("checking verification status: %w", err)
		}
		if status.Pending {
			continue
		}
		if status.Verified {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotVerified, status.Message)
	}

	return fmt.Errorf("%w after %d checks (guid %s)", ErrStillPending, s.maxPolls, guid)
}

func (s *Service) buildSubmission(req deployments.VerifyRequest) (*Submission, error) {
	address := req.Address.Hex()
	if err := validation.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if err := validation.ValidateChainID(s.chainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}

	f := req.Factory
	if f == nil || f.Verification == nil || len(f.Verification.StandardJSON) == 0 {
		return nil, ErrNoSourceInput
	}

	version := f.Verification.SolcLongVersion
	if version == "" {
		version = f.Compiler.Version
	}
	compiler, err := validation.NormalizeCompilerVersion(version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompiler, err)
	}
	if validation.IsNightly(compiler) {
		s.logger.Warn("nightly compiler build, explorers may not list it", "contract", req.ContractName, "compiler", compiler)
	}

	return &Submission{
		ChainID:         s.chainID,
		Address:         address,
		ContractName:    f.QualifiedName(),
		CompilerVersion: compiler,
		StandardJSON:    f.Verification.StandardJSON,
		ConstructorArgs: hex.EncodeToString(req.ConstructorArgs.Encoded),
		License:         LicenseCode(f.License),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
