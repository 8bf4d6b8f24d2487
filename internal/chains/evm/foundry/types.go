package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// artifactFile is out/{Source}.sol/{Contract}.json
type artifactFile struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         bytecode        `json:"bytecode"`
	DeployedBytecode bytecode        `json:"deployedBytecode"`
	// RawMetadata is the solc metadata as a string; newer forge versions
	// also write it decoded under Metadata.
	RawMetadata string          `json:"rawMetadata"`
	Metadata    json.RawMessage `json:"metadata"`
}

type bytecode struct {
	Object string `json:"object"`
}

func (a *artifactFile) metadata() (*solcMetadata, error) {
	var data []byte
	switch {
	case a.RawMetadata != "":
		data = []byte(a.RawMetadata)
	case len(a.Metadata) > 0 && a.Metadata[0] == '{':
		data = a.Metadata
	default:
		return nil, errors.New("artifact has no metadata")
	}

	var m solcMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return &m, nil
}

// solcMetadata is the compiler metadata embedded in each artifact
type solcMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string          `json:"language"`
	Settings metadataSettings `json:"settings"`
	Sources  metadataSources  `json:"sources"`
}

type metadataSettings struct {
	CompilationTarget map[string]string            `json:"compilationTarget"`
	EVMVersion        string                       `json:"evmVersion"`
	Libraries         map[string]map[string]string `json:"libraries"`
	Metadata          *metadataOptions             `json:"metadata,omitempty"`
	Optimizer         optimizer                    `json:"optimizer"`
	Remappings        []string                     `json:"remappings"`
	ViaIR             bool                         `json:"viaIR"`
}

// sourcePath returns the file compilationTarget maps to contract, or the
// only target when the names disagree.
func (s metadataSettings) sourcePath(contract string) string {
	var only string
	for path, name := range s.CompilationTarget {
		if name == contract {
			return path
		}
		only = path
	}
	if len(s.CompilationTarget) == 1 {
		return only
	}
	return ""
}

type metadataOptions struct {
	BytecodeHash      string `json:"bytecodeHash,omitempty"`
	UseLiteralContent bool   `json:"useLiteralContent,omitempty"`
	AppendCBOR        *bool  `json:"appendCBOR,omitempty"`
}

type optimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

type metadataSources map[string]struct {
	License string `json:"license"`
}

// license returns the SPDX license of the target source, falling back to the
// first licensed dependency in path order.
func (s metadataSources) license(target string) string {
	if src, ok := s[target]; ok && src.License != "" {
		return src.License
	}
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if l := s[p].License; l != "" {
			return l
		}
	}
	return ""
}

// buildInfo is out/build-info/{id}.json
type buildInfo struct {
	SolcLongVersion string          `json:"solcLongVersion"` // "0.8.28+commit.7893614a"
	Input           json.RawMessage `json:"input"`
	Output          struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	} `json:"output"`
}

func (b *buildInfo) declares(sourcePath, contract string) bool {
	_, ok := b.Output.Contracts[sourcePath][contract]
	return ok
}
