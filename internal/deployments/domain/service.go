package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/pendergraft/casino-deployer/internal/chains"
	"github.com/pendergraft/casino-deployer/internal/observability/metrics"
)

// DefaultSettleDelay is how long to wait after deployment before asking the
// explorer to verify, so it has indexed the new contract.
const DefaultSettleDelay = 30 * time.Second

// Chain submits contract creations and waits for them to settle.
type Chain interface {
	SubmitInstantiation(ctx context.Context, f *chains.Factory, encodedArgs []byte) (*chains.PendingDeployment, error)
	AwaitSettlement(ctx context.Context, pending *chains.PendingDeployment) (*chains.Receipt, error)
}

// CodeChecker is implemented by chains that can compare deployed runtime
// code against the artifact.
type CodeChecker interface {
	VerifyDeployment(ctx context.Context, f *chains.Factory, address common.Address) (*chains.VerifyResult, error)
}

// VerifyRequest is everything an explorer needs to verify one deployment.
type VerifyRequest struct {
	ContractName    string
	Address         common.Address
	ConstructorArgs ResolvedArgs
	Factory         *chains.Factory
}

// Verifier registers a deployed contract's source with an explorer.
type Verifier interface {
	VerifySource(ctx context.Context, req VerifyRequest) error
}

// FactorySource loads compiled contracts by name.
type FactorySource interface {
	Load(contractName string) (*chains.Factory, error)
}

// EventKind identifies a progress event.
type EventKind int

const (
	EventDeploying EventKind = iota
	EventDeployed
	EventAwaitingVerification
	EventVerificationSettled
)

// Event is emitted as the run progresses.
type Event struct {
	Kind     EventKind
	Contract string
	Args     ResolvedArgs
	Result   *DeploymentResult
	Delay    time.Duration
}

// Orchestrator runs the deployment pipeline for one run.
type Orchestrator struct {
	chain       Chain
	verifier    Verifier
	skipReason  string
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	progress    func(Event)
	runID       string
	chainID     *big.Int
	logger      *slog.Logger

	// deployed tracks names submitted in this run; a name is never submitted twice.
	deployed map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifier sets the source verifier.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithoutVerification records every result as skipped with the given reason.
func WithoutVerification(reason string) Option {
	return func(o *Orchestrator) {
		o.verifier = nil
		o.skipReason = reason
	}
}

// WithSettleDelay sets the wait between deployment and verification.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.settleDelay = d
		}
	}
}

// WithSleep replaces the settle delay wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithProgress registers a callback for progress events.
func WithProgress(fn func(Event)) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// WithChainID records the target chain on the summary.
func WithChainID(id *big.Int) Option {
	return func(o *Orchestrator) {
		o.chainID = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator for a single run.
func NewOrchestrator(chain Chain, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		chain:       chain,
		skipReason:  "no verifier configured",
		settleDelay: DefaultSettleDelay,
		sleep:       sleepContext,
		now:         time.Now,
		progress:    func(Event) {},
		runID:       uuid.New().String(),
		logger:      slog.Default(),
		deployed:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("run_id", o.runID)
	return o
}

// RunID returns the identifier attached to logs, metrics and the summary.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run deploys specs strictly in order. A resolution or deployment error
// stops the run; the summary of what was deployed so far is returned with it.
// Verification failures are recorded on the results and never stop the run.
func (o *Orchestrator) Run(ctx context.Context, specs []ContractSpec) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     o.runID,
		ChainID:   o.chainID,
		StartedAt: o.now(),
	}
	defer func() {
		summary.FinishedAt = o.now()
	}()

	if err := checkSpecs(specs); err != nil {
		return summary, err
	}

	o.logger.Info("deployment run started", "contracts", len(specs))

	for _, spec := range specs {
		args, err := spec.Resolve()
		if err != nil {
			o.logger.Error("resolving constructor arguments", "contract", spec.Name, "error", err)
			metrics.Deployment(spec.Name, "unsupported_shape")
			return summary, err
		}

		result, err := o.Deploy(ctx, spec, args)
		if err != nil {
			o.logger.Error("deployment failed", "contract", spec.Name, "error", err)
			return summary, err
		}

		o.Verify(ctx, result)
		summary.append(*result)
	}

	o.logger.Info("deployment run finished", "deployed", len(summary.Results))
	return summary, nil
}

// checkSpecs rejects duplicate names before anything is submitted.
func checkSpecs(specs []ContractSpec) error {
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidSpec)
		}
		if seen[spec.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateContract, spec.Name)
		}
		seen[spec.Name] = true
	}
	return nil
}

// Deploy submits one contract creation and blocks until it settles.
// The returned result has its verification still pending.
func (o *Orchestrator) Deploy(ctx context.Context, spec ContractSpec, args ResolvedArgs) (*DeploymentResult, error) {
	logger := o.logger.With("contract", spec.Name)

	if o.deployed[spec.Name] {
		return nil, &DeploymentFailedError{Contract: spec.Name, Err: ErrAlreadyDeployed}
	}
	if spec.Factory == nil {
		return nil, &DeploymentFailedError{Contract: spec.Name, Err: ErrNoFactory}
	}
	o.deployed[spec.Name] = true

	o.progress(Event{Kind: EventDeploying, Contract: spec.Name, Args: args})
	start := o.now()

	pending, err := o.chain.SubmitInstantiation(ctx, spec.Factory, args.Encoded)
	if err != nil {
		metrics.Deployment(spec.Name, "failed")
		return nil, &DeploymentFailedError{Contract: spec.Name, Err: err}
	}
	logger.Info("contract creation submitted", "tx", pending.TxHash.Hex())

	result := &DeploymentResult{
		ContractName:    spec.Name,
		TxHash:          pending.TxHash,
		ConstructorArgs: args.clone(),
		Verification:    Verification{Status: VerificationPending},
		factory:         spec.Factory,
	}

	receipt, err := o.chain.AwaitSettlement(ctx, pending)
	if err != nil {
		metrics.Deployment(spec.Name, "failed")
		return nil, &DeploymentFailedError{Contract: spec.Name, Err: err}
	}

	result.Address = receipt.Address
	result.BlockNumber = receipt.BlockNumber
	result.GasUsed = receipt.GasUsed
	result.DeployedAt = o.now()

	metrics.Deployment(spec.Name, "deployed")
	metrics.DeploymentDuration(spec.Name, result.DeployedAt.Sub(start))
	metrics.GasUsed(spec.Name, receipt.GasUsed)

	logger.Info("contract deployed",
		"address", result.Address.Hex(),
		"block", result.BlockNumber,
		"gas_used", result.GasUsed,
	)

	if checker, ok := o.chain.(CodeChecker); ok {
		check, err := checker.VerifyDeployment(ctx, spec.Factory, result.Address)
		if err != nil {
			logger.Warn("runtime code check failed", "error", err)
		} else {
			result.CodeCheck = check
			logger.Debug("runtime code check", "match", check.MatchType)
		}
	}

	o.progress(Event{Kind: EventDeployed, Contract: spec.Name, Result: result})
	return result, nil
}

// Verify makes the single verification attempt for a deployed contract.
// Errors are recorded on the result, never returned.
func (o *Orchestrator) Verify(ctx context.Context, result *DeploymentResult) {
	if result.Verification.Status != VerificationPending {
		return
	}

	logger := o.logger.With("contract", result.ContractName)
	defer func() {
		metrics.Verification(string(result.Verification.Status))
		o.progress(Event{Kind: EventVerificationSettled, Contract: result.ContractName, Result: result})
	}()

	if o.verifier == nil {
		result.settle(VerificationSkipped, o.skipReason)
		logger.Info("verification skipped", "reason", o.skipReason)
		return
	}

	o.progress(Event{Kind: EventAwaitingVerification, Contract: result.ContractName, Result: result, Delay: o.settleDelay})
	if err := o.sleep(ctx, o.settleDelay); err != nil {
		result.settle(VerificationFailed, fmt.Sprintf("waiting to verify: %v", err))
		logger.Warn("verification aborted", "error", err)
		return
	}

	err := o.verifier.VerifySource(ctx, VerifyRequest{
		ContractName:    result.ContractName,
		Address:         result.Address,
		ConstructorArgs: result.ConstructorArgs.clone(),
		Factory:         result.factory,
	})
	if err != nil {
		result.settle(VerificationFailed, err.Error())
		logger.Warn("verification failed", "error", err)
		return
	}

	result.settle(VerificationVerified, "")
	logger.Info("contract verified", "address", result.Address.Hex())
}

// BindFactories loads the compiled contract for every spec.
func BindFactories(specs []ContractSpec, source FactorySource) ([]ContractSpec, error) {
	bound := make([]ContractSpec, len(specs))
	for i, spec := range specs {
		f, err := source.Load(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", spec.Name, err)
		}
		bound[i] = spec.WithFactory(f)
	}
	return bound, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
