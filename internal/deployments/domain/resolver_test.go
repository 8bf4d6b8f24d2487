package domain

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

const (
	noConstructorABI = `[{"type":"function","name":"play","inputs":[],"outputs":[],"stateMutability":"payable"}]`
	tokenABI         = `[{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"name","type":"string"},
		{"name":"symbol","type":"string"},
		{"name":"initialSupply","type":"uint256"}]}]`
)

func newFactory(t *testing.T, name, abiJSON string) *chains.Factory {
	t.Helper()
	f, err := chains.NewFactory(&chains.Artifact{
		Name: name,
		EVM: &chains.EVMArtifact{
			SourcePath: "src/" + name + ".sol",
			ABI:        json.RawMessage(abiJSON),
			Bytecode:   "0x6080604052",
		},
	})
	require.NoError(t, err)
	return f
}

func constructorABI(types ...string) string {
	inputs := make([]map[string]string, len(types))
	for i, typ := range types {
		inputs[i] = map[string]string{"name": "", "type": typ}
	}
	data, _ := json.Marshal([]map[string]any{{"type": "constructor", "inputs": inputs, "stateMutability": "nonpayable"}})
	return string(data)
}

func oneMillionTokens() *big.Int {
	return new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func tokenArities() Arities {
	return Arities{
		0: func() []any { return []any{} },
		3: func() []any { return []any{"Friendship Bracelets", "FRND", oneMillionTokens()} },
	}
}

func TestResolve_ZeroArity(t *testing.T) {
	f := newFactory(t, "Casino", noConstructorABI)

	args, err := Resolve(f, Arities{0: func() []any { return nil }})
	require.NoError(t, err)
	assert.Equal(t, 0, args.Arity)
	assert.NotNil(t, args.Values)
	assert.Empty(t, args.Values)
	assert.Empty(t, args.Encoded)
}

func TestResolve_SelectsMatchingArity(t *testing.T) {
	f := newFactory(t, "Token", tokenABI)

	args, err := Resolve(f, tokenArities())
	require.NoError(t, err)
	assert.Equal(t, 3, args.Arity)
	require.Len(t, args.Values, 3)
	assert.Equal(t, "Friendship Bracelets", args.Values[0])
	assert.Equal(t, "FRND", args.Values[1])
	assert.Zero(t, oneMillionTokens().Cmp(args.Values[2].(*big.Int)))

	decoded, err := f.ConstructorInputs().Unpack(args.Encoded)
	require.NoError(t, err)
	assert.Equal(t, "Friendship Bracelets", decoded[0])
	assert.Equal(t, "FRND", decoded[1])
	assert.Zero(t, oneMillionTokens().Cmp(decoded[2].(*big.Int)))
}

func TestResolve_Deterministic(t *testing.T) {
	f := newFactory(t, "Token", tokenABI)

	first, err := Resolve(f, tokenArities())
	require.NoError(t, err)
	second, err := Resolve(f, tokenArities())
	require.NoError(t, err)
	assert.Equal(t, first.Encoded, second.Encoded)
}

func TestResolve_UnsupportedShape(t *testing.T) {
	f := newFactory(t, "Token", tokenABI)

	_, err := Resolve(f, Arities{0: func() []any { return []any{} }})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedConstructorShape)
	assert.NotErrorIs(t, err, ErrDeploymentFailed)

	var shapeErr *UnsupportedConstructorShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "Token", shapeErr.Contract)
	assert.Equal(t, 3, shapeErr.Arity)
	assert.Equal(t, []int{0}, shapeErr.Declared)
	assert.Contains(t, err.Error(), "Token")
	assert.Contains(t, err.Error(), "3 parameters")
}

func TestResolve_BuilderCountMismatch(t *testing.T) {
	f := newFactory(t, "Token", tokenABI)

	// bypasses NewContractSpec validation
	_, err := Resolve(f, Arities{3: func() []any { return []any{"only one"} }})
	require.ErrorIs(t, err, ErrUnsupportedConstructorShape)
	assert.Contains(t, err.Error(), "returned 1 values")
}

func TestResolve_TupleSliceRejected(t *testing.T) {
	abiJSON := `[{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"payouts","type":"tuple[]","components":[{"name":"amount","type":"uint256"}]}]}]`
	f := newFactory(t, "Casino", abiJSON)

	var err error
	require.NotPanics(t, func() {
		_, err = Resolve(f, Arities{1: func() []any { return []any{[]any{[]any{1}}} }})
	})
	require.ErrorIs(t, err, ErrUnsupportedConstructorShape)
	assert.Contains(t, err.Error(), "element 0")
}

func TestResolve_NoFactory(t *testing.T) {
	_, err := Resolve(nil, tokenArities())
	require.ErrorIs(t, err, ErrNoFactory)

	spec := MustSpec("Token", tokenArities())
	_, err = spec.Resolve()
	require.ErrorIs(t, err, ErrNoFactory)
	assert.Contains(t, err.Error(), "Token")
}

func TestResolve_Coercion(t *testing.T) {
	owner := "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	tests := []struct {
		name    string
		types   []string
		values  []any
		check   func(t *testing.T, values []any)
		wantErr string
	}{
		{
			name:   "unit string to uint256",
			types:  []string{"uint256"},
			values: []any{"1000000e18"},
			check: func(t *testing.T, values []any) {
				assert.Zero(t, oneMillionTokens().Cmp(values[0].(*big.Int)))
			},
		},
		{
			name:   "denominated amount",
			types:  []string{"uint256"},
			values: []any{"1000000 ether"},
			check: func(t *testing.T, values []any) {
				assert.Zero(t, oneMillionTokens().Cmp(values[0].(*big.Int)))
			},
		},
		{
			name:   "int to uint8",
			types:  []string{"uint8"},
			values: []any{18},
			check: func(t *testing.T, values []any) {
				assert.Equal(t, uint8(18), values[0])
			},
		},
		{
			name:   "negative int64",
			types:  []string{"int64"},
			values: []any{-5},
			check: func(t *testing.T, values []any) {
				assert.Equal(t, int64(-5), values[0])
			},
		},
		{
			name:   "integral float from yaml",
			types:  []string{"uint32"},
			values: []any{float64(42)},
			check: func(t *testing.T, values []any) {
				assert.Equal(t, uint32(42), values[0])
			},
		},
		{
			name:   "address string",
			types:  []string{"address"},
			values: []any{owner},
			check: func(t *testing.T, values []any) {
				assert.Equal(t, common.HexToAddress(owner), values[0])
			},
		},
		{
			name:   "bool string",
			types:  []string{"bool"},
			values: []any{"true"},
			check: func(t *testing.T, values []any) {
				assert.Equal(t, true, values[0])
			},
		},
		{
			name:   "bytes32 hex",
			types:  []string{"bytes32"},
			values: []any{"0xab" + strings.Repeat("00", 31)},
			check: func(t *testing.T, values []any) {
				arr, ok := values[0].([32]byte)
				require.True(t, ok)
				assert.Equal(t, byte(0xab), arr[0])
			},
		},
		{
			name:   "address array",
			types:  []string{"address[]"},
			values: []any{[]any{owner, owner}},
			check: func(t *testing.T, values []any) {
				addrs, ok := values[0].([]common.Address)
				require.True(t, ok)
				assert.Len(t, addrs, 2)
			},
		},
		{
			name:    "uint8 overflow",
			types:   []string{"uint8"},
			values:  []any{256},
			wantErr: "out of range",
		},
		{
			name:    "negative uint",
			types:   []string{"uint256"},
			values:  []any{-1},
			wantErr: "out of range",
		},
		{
			name:    "fractional float",
			types:   []string{"uint256"},
			values:  []any{1.5},
			wantErr: "not an exact integer",
		},
		{
			name:    "bad address",
			types:   []string{"address"},
			values:  []any{"0x1234"},
			wantErr: "invalid address",
		},
		{
			name:    "number for string",
			types:   []string{"string"},
			values:  []any{7},
			wantErr: "expected string",
		},
		{
			name:    "short bytes32",
			types:   []string{"bytes32"},
			values:  []any{"0xabcd"},
			wantErr: "expected 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFactory(t, "Thing", constructorABI(tt.types...))
			values := tt.values

			args, err := Resolve(f, Arities{len(values): func() []any { return values }})
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrUnsupportedConstructorShape)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, args.Encoded)
			tt.check(t, args.Values)
		})
	}
}

func TestNewContractSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		arities Arities
		wantErr string
	}{
		{name: "valid", spec: "Token", arities: tokenArities()},
		{name: "missing name", arities: tokenArities(), wantErr: "name is required"},
		{name: "no arities", spec: "Token", arities: Arities{}, wantErr: "no constructor arities"},
		{name: "nil builder", spec: "Token", arities: Arities{0: nil}, wantErr: "no builder"},
		{name: "negative arity", spec: "Token", arities: Arities{-1: func() []any { return nil }}, wantErr: "negative arity"},
		{
			name:    "count mismatch",
			spec:    "Token",
			arities: Arities{3: func() []any { return []any{"a", "b"} }},
			wantErr: "returns 2 values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewContractSpec(tt.spec, tt.arities)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrInvalidSpec)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spec, spec.Name)
			assert.Equal(t, []int{0, 3}, spec.Arities.Declared())
		})
	}
}

func TestMustSpec_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustSpec("", nil)
	})
}

func TestResolvedArgs_Strings(t *testing.T) {
	args := ResolvedArgs{Values: []any{
		"FRND",
		oneMillionTokens(),
		common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		[]byte{0xde, 0xad},
		uint8(18),
	}}

	assert.Equal(t, []string{
		"FRND",
		"1000000000000000000000000",
		"0x5FbDB2315678afecb367f032d93F642f64180aa3",
		"0xdead",
		"18",
	}, args.Strings())
}
