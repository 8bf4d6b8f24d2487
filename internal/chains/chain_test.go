package chains

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenABI = `[{"type":"constructor","stateMutability":"nonpayable","inputs":[
	{"name":"name","type":"string"},
	{"name":"symbol","type":"string"},
	{"name":"initialSupply","type":"uint256"}]}]`

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name      string
		artifact  *Artifact
		wantArity int
		wantErr   string
	}{
		{
			name: "three constructor inputs",
			artifact: &Artifact{Name: "Token", EVM: &EVMArtifact{
				SourcePath: "src/Token.sol",
				ABI:        json.RawMessage(tokenABI),
				Bytecode:   "0x6080",
			}},
			wantArity: 3,
		},
		{
			name: "no explicit constructor",
			artifact: &Artifact{Name: "Casino", EVM: &EVMArtifact{
				ABI:      json.RawMessage(`[{"type":"function","name":"play","inputs":[],"outputs":[]}]`),
				Bytecode: "6080",
			}},
			wantArity: 0,
		},
		{
			name:     "missing evm section",
			artifact: &Artifact{Name: "X"},
			wantErr:  "no EVM data",
		},
		{
			name: "interface",
			artifact: &Artifact{Name: "IToken", EVM: &EVMArtifact{
				ABI:      json.RawMessage(`[]`),
				Bytecode: "0x",
			}},
			wantErr: "no bytecode",
		},
		{
			name: "unlinked library",
			artifact: &Artifact{Name: "Linked", EVM: &EVMArtifact{
				ABI:      json.RawMessage(`[]`),
				Bytecode: "0x6080__$abcdef$__",
			}},
			wantErr: "unlinked",
		},
		{
			name: "bad abi",
			artifact: &Artifact{Name: "Broken", EVM: &EVMArtifact{
				ABI:      json.RawMessage(`{`),
				Bytecode: "0x6080",
			}},
			wantErr: "parsing ABI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFactory(tt.artifact)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArity, f.Arity())
			assert.Equal(t, []byte{0x60, 0x80}, f.Bytecode)
		})
	}
}

func TestFactory_QualifiedName(t *testing.T) {
	assert.Equal(t, "src/Token.sol:Token", (&Factory{Name: "Token", SourcePath: "src/Token.sol"}).QualifiedName())
	assert.Equal(t, "Token", (&Factory{Name: "Token"}).QualifiedName())
}

func TestFactory_CreationCode(t *testing.T) {
	f := &Factory{Bytecode: []byte{0x01, 0x02}}

	code := f.CreationCode([]byte{0x03})
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, code)
	// the factory's own bytecode is never aliased
	assert.Equal(t, []byte{0x01, 0x02}, f.Bytecode)
}
