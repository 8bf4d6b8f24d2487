// Package foundry reads Foundry build output (out/ and out/build-info).
package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

const outDir = "out"

// Builder implements chains.Builder for Foundry projects
type Builder struct{}

// New creates a Foundry builder
func New() *Builder {
	return &Builder{}
}

func (b *Builder) Name() string        { return "foundry" }
func (b *Builder) DisplayName() string { return "Foundry" }
func (b *Builder) ConfigFile() string  { return "foundry.toml" }

// Detect reports whether dir holds a foundry.toml
func (b *Builder) Detect(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, b.ConfigFile()))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// Locate finds out/{Source}.sol/{contract}.json
func (b *Builder) Locate(dir, contract string) (string, error) {
	path, err := chains.FindArtifact(filepath.Join(dir, outDir), contract)
	if errors.Is(err, chains.ErrNotCompiled) {
		return "", fmt.Errorf("%w: run 'forge build' first", err)
	}
	return path, err
}

// Parse reads a Foundry artifact. Compiler details come from the embedded
// metadata; an artifact without metadata still parses.
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	raw, err := readArtifact(artifactPath)
	if err != nil {
		return nil, err
	}
	if code := raw.Bytecode.Object; code == "" || code == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	name := strings.TrimSuffix(filepath.Base(artifactPath), ".json")
	evm := &chains.EVMArtifact{
		ABI:              raw.ABI,
		Bytecode:         raw.Bytecode.Object,
		DeployedBytecode: raw.DeployedBytecode.Object,
	}

	if meta, err := raw.metadata(); err == nil {
		evm.SourcePath = meta.Settings.sourcePath(name)
		evm.License = meta.Sources.license(evm.SourcePath)
		evm.Compiler = chains.EVMCompiler{
			Version:    meta.Compiler.Version,
			EVMVersion: meta.Settings.EVMVersion,
			ViaIR:      meta.Settings.ViaIR,
			Optimizer: chains.OptimizerConfig{
				Enabled: meta.Settings.Optimizer.Enabled,
				Runs:    meta.Settings.Optimizer.Runs,
			},
		}
	}

	return &chains.Artifact{Name: name, EVM: evm}, nil
}

// CompilerInput prefers input rebuilt from the artifact's own metadata, which
// reproduces the metadata hash in the deployed code. The project build-info
// is the fallback.
func (b *Builder) CompilerInput(dir, artifactPath string, artifact *chains.Artifact) (*chains.VerificationInput, error) {
	input, metaErr := contractInput(dir, artifactPath)
	if metaErr == nil {
		return &chains.VerificationInput{
			StandardJSON:    input,
			SolcLongVersion: artifact.EVM.Compiler.Version,
		}, nil
	}

	vi, err := buildInfoInput(filepath.Join(dir, outDir, "build-info"), artifact.Name, artifact.EVM.SourcePath)
	if err != nil {
		return nil, errors.Join(metaErr, err)
	}
	return vi, nil
}

func readArtifact(path string) (*artifactFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	var raw artifactFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}
	return &raw, nil
}
