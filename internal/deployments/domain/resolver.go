package domain

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pendergraft/casino-deployer/internal/chains"
	"github.com/pendergraft/casino-deployer/internal/chains/evm"
)

// Resolve picks the argument builder matching the factory's constructor
// arity, coerces its values to the declared parameter types and encodes them.
// It never touches the chain.
func Resolve(f *chains.Factory, arities Arities) (ResolvedArgs, error) {
	if f == nil {
		return ResolvedArgs{}, ErrNoFactory
	}
	return resolve(f.Name, f, arities)
}

func resolve(name string, f *chains.Factory, arities Arities) (ResolvedArgs, error) {
	if f == nil {
		return ResolvedArgs{}, fmt.Errorf("%s: %w", name, ErrNoFactory)
	}

	inputs := f.ConstructorInputs()
	arity := len(inputs)

	build, ok := arities[arity]
	if !ok || build == nil {
		return ResolvedArgs{}, &UnsupportedConstructorShapeError{
			Contract: name,
			Arity:    arity,
			Declared: arities.Declared(),
		}
	}

	raw := build()
	if len(raw) != arity {
		return ResolvedArgs{}, &UnsupportedConstructorShapeError{
			Contract: name,
			Arity:    arity,
			Declared: arities.Declared(),
			Reason:   fmt.Sprintf("argument builder returned %d values", len(raw)),
		}
	}

	values := make([]any, arity)
	for i, in := range inputs {
		v, err := coerce(in.Type, raw[i])
		if err != nil {
			return ResolvedArgs{}, &UnsupportedConstructorShapeError{
				Contract: name,
				Arity:    arity,
				Declared: arities.Declared(),
				Reason:   fmt.Sprintf("argument %d (%s %s): %v", i, in.Type.String(), in.Name, err),
			}
		}
		values[i] = v
	}

	encoded, err := inputs.Pack(values...)
	if err != nil {
		return ResolvedArgs{}, &UnsupportedConstructorShapeError{
			Contract: name,
			Arity:    arity,
			Declared: arities.Declared(),
			Reason:   fmt.Sprintf("encoding arguments: %v", err),
		}
	}

	return ResolvedArgs{Arity: arity, Values: values, Encoded: encoded}, nil
}

// coerce converts loosely typed manifest values (strings, plain ints) into
// the Go types the ABI encoder expects for t.
func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		return coerceInteger(t, v)

	case abi.BoolTy:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
		return nil, fmt.Errorf("expected bool, got %T", v)

	case abi.StringTy:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)

	case abi.AddressTy:
		switch x := v.(type) {
		case common.Address:
			return x, nil
		case string:
			if !common.IsHexAddress(x) {
				return nil, fmt.Errorf("invalid address %q", x)
			}
			return common.HexToAddress(x), nil
		}
		return nil, fmt.Errorf("expected address, got %T", v)

	case abi.BytesTy:
		return toBytes(v)

	case abi.FixedBytesTy:
		if reflect.TypeOf(v) == t.GetType() {
			return v, nil
		}
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		items, ok := v.([]any)
		if !ok {
			// already typed; the encoder validates it
			return v, nil
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			c, err := coerce(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			cv := reflect.ValueOf(c)
			if !cv.IsValid() || !cv.Type().AssignableTo(out.Type().Elem()) {
				return nil, fmt.Errorf("element %d: expected %s, got %T", i, t.Elem, c)
			}
			out.Index(i).Set(cv)
		}
		return out.Interface(), nil

	case abi.TupleTy:
		switch v.(type) {
		case []any, map[string]any, map[any]any:
			return nil, fmt.Errorf("%s values cannot be written as plain lists or maps", t)
		}
	}

	return v, nil
}

func coerceInteger(t abi.Type, v any) (any, error) {
	n, err := toBigInt(v)
	if err != nil {
		return nil, err
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s out of range for uint%d", n, t.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s out of range for int%d", n, t.Size)
		}
	}

	// The encoder wants native ints for the power-of-two sizes up to 64 bits.
	switch t.Size {
	case 8, 16, 32, 64:
		out := reflect.New(t.GetType()).Elem()
		if t.T == abi.UintTy {
			out.SetUint(n.Uint64())
		} else {
			out.SetInt(n.Int64())
		}
		return out.Interface(), nil
	}
	return n, nil
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return nil, fmt.Errorf("%v is not an exact integer, quote it as a string", x)
		}
		return big.NewInt(int64(x)), nil
	case string:
		return evm.ParseAmount(x)
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return hexutil.Decode(x)
	}
	return nil, fmt.Errorf("expected bytes, got %T", v)
}
