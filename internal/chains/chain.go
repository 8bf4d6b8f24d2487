// Package chains provides the types shared by the build, deployment and
// verification layers: compiled artifacts, deployable factories and the
// handles returned while a contract creation settles.
package chains

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Builder reads compiled contract output from a specific build tool
type Builder interface {
	Name() string        // "foundry", "hardhat"
	DisplayName() string // "Foundry", "Hardhat"

	// Detect reports whether dir is a project of this tool
	Detect(dir string) (bool, error)
	ConfigFile() string

	// Locate returns the artifact file of one contract
	Locate(dir, contract string) (string, error)
	Parse(artifactPath string) (*Artifact, error)
	// CompilerInput returns what an explorer needs to rebuild the contract
	CompilerInput(dir, artifactPath string, artifact *Artifact) (*VerificationInput, error)
}

// VerifyResult contains local bytecode comparison results
type VerifyResult struct {
	Match     bool   // Whether the bytecode matches
	MatchType string // "full", "partial", "none"
	Message   string // Human-readable explanation
}

// VerificationInput is what an explorer needs to recompile a contract
type VerificationInput struct {
	StandardJSON    []byte
	SolcLongVersion string // "0.8.28+commit.7893614a"
}

// Artifact is a compiled contract as read from the build output
type Artifact struct {
	Name string       `json:"name"`
	EVM  *EVMArtifact `json:"evm,omitempty"`
}

// EVMArtifact contains EVM-specific contract data
type EVMArtifact struct {
	SourcePath       string          `json:"sourcePath"`
	License          string          `json:"license,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Compiler         EVMCompiler     `json:"compiler"`
}

// EVMCompiler contains EVM compiler details
type EVMCompiler struct {
	Version    string          `json:"version"` // "0.8.20+commit.a1b2c3d4"
	Optimizer  OptimizerConfig `json:"optimizer"`
	EVMVersion string          `json:"evmVersion"` // "paris", "shanghai"
	ViaIR      bool            `json:"viaIR"`
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// Factory is a deployable contract: the parsed interface plus creation code.
// It is owned by the build layer and read-only for everyone else.
type Factory struct {
	Name             string
	SourcePath       string
	License          string // SPDX identifier, "" when unknown
	ABI              abi.ABI
	Bytecode         []byte
	DeployedBytecode []byte
	Compiler         EVMCompiler

	// Verification is nil when the build output carries no compiler input.
	Verification *VerificationInput
}

// NewFactory parses an artifact's ABI and bytecode into a Factory
func NewFactory(a *Artifact) (*Factory, error) {
	if a == nil || a.EVM == nil {
		return nil, fmt.Errorf("artifact has no EVM data")
	}

	parsed, err := abi.JSON(strings.NewReader(string(a.EVM.ABI)))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI for %s: %w", a.Name, err)
	}

	code, err := decodeBytecode(a.EVM.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode for %s: %w", a.Name, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("contract %s has no bytecode (likely an interface)", a.Name)
	}

	var deployed []byte
	if a.EVM.DeployedBytecode != "" {
		deployed, err = decodeBytecode(a.EVM.DeployedBytecode)
		if err != nil {
			return nil, fmt.Errorf("decoding deployed bytecode for %s: %w", a.Name, err)
		}
	}

	return &Factory{
		Name:             a.Name,
		SourcePath:       a.EVM.SourcePath,
		License:          a.EVM.License,
		ABI:              parsed,
		Bytecode:         code,
		DeployedBytecode: deployed,
		Compiler:         a.EVM.Compiler,
	}, nil
}

// ConstructorInputs returns the declared constructor parameters.
// A contract without an explicit constructor has none.
func (f *Factory) ConstructorInputs() abi.Arguments {
	return f.ABI.Constructor.Inputs
}

// Arity returns the number of constructor parameters
func (f *Factory) Arity() int {
	return len(f.ConstructorInputs())
}

// QualifiedName returns "path/To.sol:Name", the form explorers expect
func (f *Factory) QualifiedName() string {
	if f.SourcePath == "" {
		return f.Name
	}
	return f.SourcePath + ":" + f.Name
}

// CreationCode returns the bytecode followed by the encoded constructor arguments
func (f *Factory) CreationCode(encodedArgs []byte) []byte {
	data := make([]byte, 0, len(f.Bytecode)+len(encodedArgs))
	data = append(data, f.Bytecode...)
	return append(data, encodedArgs...)
}

func decodeBytecode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if strings.Contains(s, "__$") {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// PendingDeployment is a submitted contract creation that has not settled yet
type PendingDeployment struct {
	Contract string
	TxHash   common.Hash
	From     common.Address
	Nonce    uint64
	// Address is derived from sender and nonce; the receipt is authoritative.
	Address common.Address
}

// Receipt is a settled contract creation
type Receipt struct {
	TxHash      common.Hash
	Address     common.Address
	BlockNumber uint64
	GasUsed     uint64
}
