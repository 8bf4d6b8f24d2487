package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

// standardJSONInput is the solc --standard-json input document
type standardJSONInput struct {
	Language string                   `json:"language"`
	Sources  map[string]sourceContent `json:"sources"`
	Settings inputSettings            `json:"settings"`
}

type sourceContent struct {
	Content string `json:"content"`
}

type inputSettings struct {
	Optimizer       optimizer                      `json:"optimizer"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	ViaIR           bool                           `json:"viaIR,omitempty"`
	Libraries       map[string]map[string]string   `json:"libraries,omitempty"`
	Remappings      []string                       `json:"remappings,omitempty"`
	Metadata        metadataOptions                `json:"metadata"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

var verificationOutputs = map[string]map[string][]string{
	"*": {"*": {"abi", "evm.bytecode", "evm.deployedBytecode", "metadata"}},
}

// contractInput rebuilds a minimal standard JSON input holding only the
// sources the contract's metadata lists, read from the project tree.
func contractInput(dir, artifactPath string) ([]byte, error) {
	raw, err := readArtifact(artifactPath)
	if err != nil {
		return nil, err
	}
	meta, err := raw.metadata()
	if err != nil {
		return nil, err
	}
	if len(meta.Sources) == 0 {
		return nil, errors.New("metadata lists no sources")
	}

	sources := make(map[string]sourceContent, len(meta.Sources))
	for path := range meta.Sources {
		content, err := os.ReadFile(filepath.Join(dir, path))
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", path, err)
		}
		sources[path] = sourceContent{Content: string(content)}
	}

	language := meta.Language
	if language == "" {
		language = "Solidity"
	}

	opt := meta.Settings.Optimizer
	if opt.Enabled && opt.Runs == 0 {
		opt.Runs = 200
	}

	metaOpts := metadataOptions{BytecodeHash: "ipfs"}
	if m := meta.Settings.Metadata; m != nil {
		metaOpts.UseLiteralContent = m.UseLiteralContent
		metaOpts.AppendCBOR = m.AppendCBOR
		if m.BytecodeHash != "" {
			metaOpts.BytecodeHash = m.BytecodeHash
		}
	}

	return json.MarshalIndent(standardJSONInput{
		Language: language,
		Sources:  sources,
		Settings: inputSettings{
			Optimizer:       opt,
			EVMVersion:      meta.Settings.EVMVersion,
			ViaIR:           meta.Settings.ViaIR,
			Libraries:       meta.Settings.Libraries,
			Remappings:      meta.Settings.Remappings,
			Metadata:        metaOpts,
			OutputSelection: verificationOutputs,
		},
	}, "", "  ")
}

// buildInfoInput returns the compiler input of the build-info file that
// produced contract. Without a source path the first readable file wins.
func buildInfoInput(buildInfoDir, contract, sourcePath string) (*chains.VerificationInput, error) {
	entries, err := os.ReadDir(buildInfoDir)
	if err != nil {
		return nil, fmt.Errorf("reading build-info directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(buildInfoDir, name))
		if err != nil {
			continue
		}
		var info buildInfo
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		if sourcePath != "" && !info.declares(sourcePath, contract) {
			continue
		}

		input, err := compilerOnlyKeys(info.Input)
		if err != nil {
			continue
		}
		return &chains.VerificationInput{
			StandardJSON:    input,
			SolcLongVersion: info.SolcLongVersion,
		}, nil
	}

	return nil, fmt.Errorf("build-info not found for contract %s", contract)
}

// forgeOnlyKeys are top-level keys forge writes into build-info input that
// solc rejects.
var forgeOnlyKeys = []string{"allowPaths", "basePath", "includePaths", "version"}

func compilerOnlyKeys(input json.RawMessage) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(input, &m); err != nil {
		return nil, err
	}
	for _, k := range forgeOnlyKeys {
		delete(m, k)
	}
	return json.Marshal(m)
}
