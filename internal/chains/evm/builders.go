package evm

import (
	"fmt"
	"os"

	"github.com/pendergraft/casino-deployer/internal/chains"
	"github.com/pendergraft/casino-deployer/internal/chains/evm/foundry"
	"github.com/pendergraft/casino-deployer/internal/chains/evm/hardhat"
)

// Builders returns every supported EVM build tool, in detection order
func Builders() []chains.Builder {
	return []chains.Builder{
		foundry.New(),
		hardhat.New(),
	}
}

// SelectBuilder returns the builder by name, or detects it when name is "auto" or empty
func SelectBuilder(name, dir string) (chains.Builder, error) {
	if name != "" && name != "auto" {
		for _, b := range Builders() {
			if b.Name() == name {
				return b, nil
			}
		}
		return nil, fmt.Errorf("unknown builder: %s (supported: foundry, hardhat)", name)
	}

	for _, b := range Builders() {
		detected, err := b.Detect(dir)
		if err != nil {
			continue
		}
		if detected {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no EVM builder detected in %s", dir)
}

// ArtifactLoader turns contract names into deployable factories
type ArtifactLoader struct {
	builder chains.Builder
	dir     string
}

// NewArtifactLoader creates a loader reading the build output of dir
func NewArtifactLoader(builder chains.Builder, dir string) *ArtifactLoader {
	return &ArtifactLoader{builder: builder, dir: dir}
}

// Builder returns the build tool in use
func (l *ArtifactLoader) Builder() chains.Builder {
	return l.builder
}

// Load finds, parses and prepares the named contract.
// Missing verification input is not an error; the Factory just carries none.
func (l *ArtifactLoader) Load(contractName string) (*chains.Factory, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}

	path, err := l.builder.Locate(l.dir, contractName)
	if err != nil {
		return nil, fmt.Errorf("%s artifact for %s: %w", l.builder.DisplayName(), contractName, err)
	}

	artifact, err := l.builder.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	factory, err := chains.NewFactory(artifact)
	if err != nil {
		return nil, err
	}

	if vi, err := l.builder.CompilerInput(l.dir, path, artifact); err == nil {
		factory.Verification = vi
	}

	return factory, nil
}
