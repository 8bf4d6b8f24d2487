// Package hardhat provides the Hardhat builder for EVM contracts.
package hardhat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

// configFiles lists the config names Hardhat accepts, in lookup order
var configFiles = []string{"hardhat.config.ts", "hardhat.config.js", "hardhat.config.cjs", "hardhat.config.mjs"}

const artifactsDir = "artifacts"

// Builder implements chains.Builder for Hardhat projects
type Builder struct{}

// New creates a Hardhat builder
func New() *Builder {
	return &Builder{}
}

func (b *Builder) Name() string        { return "hardhat" }
func (b *Builder) DisplayName() string { return "Hardhat" }
func (b *Builder) ConfigFile() string  { return configFiles[0] }

// Detect checks for any of the accepted config file names
func (b *Builder) Detect(dir string) (bool, error) {
	for _, name := range configFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}

// Locate finds artifacts/{Source}.sol/{contract}.json
func (b *Builder) Locate(dir, contract string) (string, error) {
	path, err := chains.FindArtifact(filepath.Join(dir, artifactsDir), contract)
	if errors.Is(err, chains.ErrNotCompiled) {
		return "", fmt.Errorf("%w: run 'npx hardhat compile' first", err)
	}
	return path, err
}

// Parse parses a Hardhat artifact file
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw Artifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}
	if raw.Bytecode == "" || raw.Bytecode == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	name := raw.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(artifactPath), ".json")
	}

	artifact := &chains.Artifact{
		Name: name,
		EVM: &chains.EVMArtifact{
			SourcePath:       raw.SourceName,
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode,
			DeployedBytecode: raw.DeployedBytecode,
		},
	}

	// The compiler version lives in build-info; a missing debug file is fine.
	if info, err := readBuildInfo(artifactPath); err == nil {
		artifact.EVM.Compiler.Version = info.SolcLongVersion
	}

	return artifact, nil
}

// CompilerInput returns the compiler input recorded in the build-info
// referenced by the artifact's debug file.
func (b *Builder) CompilerInput(dir, artifactPath string, artifact *chains.Artifact) (*chains.VerificationInput, error) {
	info, err := readBuildInfo(artifactPath)
	if err != nil {
		return nil, err
	}
	if len(info.Input) == 0 {
		return nil, fmt.Errorf("build-info for %s has no compiler input", artifact.Name)
	}

	return &chains.VerificationInput{
		StandardJSON:    info.Input,
		SolcLongVersion: info.SolcLongVersion,
	}, nil
}

// readBuildInfo follows {Contract}.dbg.json to the build-info file
func readBuildInfo(artifactPath string) (*BuildInfo, error) {
	dbgPath := strings.TrimSuffix(artifactPath, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("reading debug file: %w", err)
	}

	var dbg DebugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("parsing debug file: %w", err)
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("debug file %s has no buildInfo reference", dbgPath)
	}

	infoPath := dbg.BuildInfo
	if !filepath.IsAbs(infoPath) {
		infoPath = filepath.Join(filepath.Dir(artifactPath), infoPath)
	}

	data, err = os.ReadFile(infoPath)
	if err != nil {
		return nil, fmt.Errorf("reading build-info: %w", err)
	}

	var info BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing build-info: %w", err)
	}
	return &info, nil
}

// Artifact represents a Hardhat artifact file (hh-sol-artifact-1)
type Artifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
}

// DebugFile represents {Contract}.dbg.json (hh-sol-dbg-1)
type DebugFile struct {
	Format    string `json:"_format"`
	BuildInfo string `json:"buildInfo"`
}

// BuildInfo represents a Hardhat build-info file (hh-sol-build-info-1)
type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
	Output          json.RawMessage `json:"output"`
}
