// Package contracts declares which contracts a run deploys and how their
// constructor arguments are built.
package contracts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pendergraft/casino-deployer/internal/chains/evm"
	"github.com/pendergraft/casino-deployer/internal/deployments/domain"
	"github.com/pendergraft/casino-deployer/internal/validation"
)

const (
	FriendshipBracelets = "FriendshipBracelets"
	DecentralizedCasino = "DecentralizedCasino"
)

// initialSupply is the bracelet token supply minted to the deployer.
var initialSupply = mustParseUnits("1000000", 18)

// Default returns the built-in deployment list, in deployment order.
func Default() []domain.ContractSpec {
	return []domain.ContractSpec{
		domain.MustSpec(FriendshipBracelets, domain.Arities{
			0: func() []any { return []any{} },
			3: func() []any {
				return []any{"Friendship Bracelets", "FRND", new(big.Int).Set(initialSupply)}
			},
		}),
		domain.MustSpec(DecentralizedCasino, domain.Arities{
			0: func() []any { return []any{} },
		}),
	}
}

// Manifest is the YAML layout of a contract list override:
//
//	contracts:
//	  - name: FriendshipBracelets
//	    constructors:
//	      0: []
//	      3: ["Friendship Bracelets", "FRND", "1000000 ether"]
type Manifest struct {
	Contracts []ManifestEntry `yaml:"contracts"`
}

// ManifestEntry declares one contract and its argument lists keyed by arity.
type ManifestEntry struct {
	Name         string        `yaml:"name"`
	Constructors map[int][]any `yaml:"constructors"`
}

// Load reads a manifest file. An empty path yields the built-in list.
func Load(path string) ([]domain.ContractSpec, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	specs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// Parse decodes a manifest and validates every entry.
func Parse(r io.Reader) ([]domain.ContractSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Contracts) == 0 {
		return nil, errors.New("manifest declares no contracts")
	}

	specs := make([]domain.ContractSpec, 0, len(m.Contracts))
	seen := make(map[string]bool, len(m.Contracts))
	for _, entry := range m.Contracts {
		if err := validation.ValidateContractName(entry.Name); err != nil {
			return nil, err
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateContract, entry.Name)
		}
		seen[entry.Name] = true

		spec, err := domain.NewContractSpec(entry.Name, literalArities(entry.Constructors))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// literalArities turns decoded argument lists into builders. Each call
// returns a fresh copy so resolution cannot mutate the manifest.
func literalArities(constructors map[int][]any) domain.Arities {
	arities := make(domain.Arities, len(constructors))
	for arity, values := range constructors {
		if values == nil {
			values = []any{}
		}
		arities[arity] = func() []any { return slices.Clone(values) }
	}
	return arities
}

// Names lists spec names in order.
func Names(specs []domain.ContractSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

func mustParseUnits(value string, decimals int) *big.Int {
	v, err := evm.ParseUnits(value, decimals)
	if err != nil {
		panic(err)
	}
	return v
}
