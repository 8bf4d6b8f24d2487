// Package domain contains the deployment pipeline: constructor resolution,
// contract creation and best-effort source verification.
package domain

import (
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

// ArgBuilder produces the constructor arguments for one arity.
// Builders must be pure: the same call always yields the same values.
type ArgBuilder func() []any

// Arities maps a constructor parameter count to its argument builder.
type Arities map[int]ArgBuilder

// Declared returns the declared arities in ascending order.
func (a Arities) Declared() []int {
	keys := make([]int, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ContractSpec declares one contract to deploy and how to build its
// constructor arguments. Immutable for a run.
type ContractSpec struct {
	Name    string
	Arities Arities
	// Factory is owned by the build layer; nil until bound.
	Factory *chains.Factory
}

// NewContractSpec validates a spec at definition time: every builder must
// exist and return exactly as many values as its arity.
func NewContractSpec(name string, arities Arities) (ContractSpec, error) {
	if name == "" {
		return ContractSpec{}, fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if len(arities) == 0 {
		return ContractSpec{}, fmt.Errorf("%w: %s declares no constructor arities", ErrInvalidSpec, name)
	}
	for arity, build := range arities {
		if arity < 0 {
			return ContractSpec{}, fmt.Errorf("%w: %s declares negative arity %d", ErrInvalidSpec, name, arity)
		}
		if build == nil {
			return ContractSpec{}, fmt.Errorf("%w: %s has no builder for arity %d", ErrInvalidSpec, name, arity)
		}
		if n := len(build()); n != arity {
			return ContractSpec{}, fmt.Errorf("%w: %s builder for arity %d returns %d values", ErrInvalidSpec, name, arity, n)
		}
	}
	return ContractSpec{Name: name, Arities: arities}, nil
}

// MustSpec is NewContractSpec for static declarations; it panics on error.
func MustSpec(name string, arities Arities) ContractSpec {
	spec, err := NewContractSpec(name, arities)
	if err != nil {
		panic(err)
	}
	return spec
}

// WithFactory returns a copy of the spec bound to a compiled contract.
func (s ContractSpec) WithFactory(f *chains.Factory) ContractSpec {
	s.Factory = f
	return s
}

// Resolve selects and encodes constructor arguments for this spec.
func (s ContractSpec) Resolve() (ResolvedArgs, error) {
	return resolve(s.Name, s.Factory, s.Arities)
}

// ResolvedArgs are the constructor arguments chosen for one contract.
type ResolvedArgs struct {
	Arity  int
	Values []any
	// Encoded is the ABI-encoded argument tuple appended to the creation code.
	Encoded []byte
}

// Strings renders each value for display.
func (r ResolvedArgs) Strings() []string {
	out := make([]string, len(r.Values))
	for i, v := range r.Values {
		switch x := v.(type) {
		case *big.Int:
			out[i] = x.String()
		case common.Address:
			out[i] = x.Hex()
		case []byte:
			out[i] = fmt.Sprintf("0x%x", x)
		default:
			out[i] = fmt.Sprintf("%v", x)
		}
	}
	return out
}

func (r ResolvedArgs) clone() ResolvedArgs {
	return ResolvedArgs{
		Arity:   r.Arity,
		Values:  slices.Clone(r.Values),
		Encoded: slices.Clone(r.Encoded),
	}
}

// VerificationStatus is the outcome of the source verification attempt.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
	VerificationSkipped  VerificationStatus = "skipped"
)

// Verification holds the status and, for failed or skipped attempts, why.
type Verification struct {
	Status  VerificationStatus
	Message string
}

// DeploymentResult records one deployed contract.
type DeploymentResult struct {
	ContractName    string
	Address         common.Address
	TxHash          common.Hash
	BlockNumber     uint64
	GasUsed         uint64
	ConstructorArgs ResolvedArgs
	// CodeCheck compares on-chain runtime code with the artifact; nil when
	// the chain cannot report code.
	CodeCheck    *chains.VerifyResult
	Verification Verification
	DeployedAt   time.Time

	factory *chains.Factory
}

// settle moves the verification status out of Pending. It reports false
// when the status was already settled.
func (r *DeploymentResult) settle(status VerificationStatus, message string) bool {
	if r.Verification.Status != VerificationPending {
		return false
	}
	r.Verification = Verification{Status: status, Message: message}
	return true
}

// RunSummary is the ordered record of one orchestration run.
type RunSummary struct {
	RunID      string
	ChainID    *big.Int
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []DeploymentResult
}

func (s *RunSummary) append(r DeploymentResult) {
	s.Results = append(s.Results, r)
}

// Result returns the entry for a contract name.
func (s *RunSummary) Result(name string) (DeploymentResult, bool) {
	for _, r := range s.Results {
		if r.ContractName == name {
			return r, true
		}
	}
	return DeploymentResult{}, false
}
