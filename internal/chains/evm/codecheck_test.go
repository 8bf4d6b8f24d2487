package evm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// withMetadata appends CBOR metadata and its length the way solc does
func withMetadata(exec, meta []byte) []byte {
	code := append(append([]byte{}, exec...), meta...)
	return binary.BigEndian.AppendUint16(code, uint16(len(meta)))
}

var (
	runtimeCode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	solcMeta    = []byte{0xa1, 0x64, 's', 'o', 'l', 'c', 0x43, 0x00, 0x08, 0x1c}
	otherMeta   = []byte{0xa1, 0x64, 's', 'o', 'l', 'c', 0x43, 0x00, 0x08, 0x1b}
)

func TestStripMetadata(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want []byte
	}{
		{"solc metadata", withMetadata(runtimeCode, solcMeta), runtimeCode},
		{"no metadata", runtimeCode, runtimeCode},
		{"length past start", []byte{0x60, 0xff, 0xff}, []byte{0x60, 0xff, 0xff}},
		{"not a cbor map", withMetadata(runtimeCode, []byte{0x00, 0x01}), withMetadata(runtimeCode, []byte{0x00, 0x01})},
		{"too short", []byte{0x60}, []byte{0x60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMetadata(tt.code))
		})
	}
}

func TestCompareBytecode(t *testing.T) {
	// PUSH32 of an immutable: zero in the artifact, filled in on chain
	immutableArtifact := []byte{0x7f, 0x00, 0x00, 0x00, 0x60, 0x00}
	immutableDeployed := []byte{0x7f, 0x12, 0x34, 0x56, 0x60, 0x00}

	tests := []struct {
		name      string
		deployed  []byte
		artifact  []byte
		wantMatch bool
		wantType  string
		wantMsg   string
	}{
		{"identical", withMetadata(runtimeCode, solcMeta), withMetadata(runtimeCode, solcMeta), true, MatchFull, "exactly"},
		{"metadata differs", withMetadata(runtimeCode, solcMeta), withMetadata(runtimeCode, otherMeta), true, MatchPartial, "metadata differs"},
		{"immutables filled", immutableDeployed, immutableArtifact, true, MatchPartial, "immutable"},
		{"opcode differs", []byte{0x60, 0x80, 0x60, 0x41, 0x52}, runtimeCode, false, MatchNone, "byte 3"},
		{"length differs", runtimeCode[:3], runtimeCode, false, MatchNone, "3 bytes on chain, 5 in the artifact"},
		{"no code", nil, runtimeCode, false, MatchNone, "no code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CompareBytecode(tt.deployed, tt.artifact)
			assert.Equal(t, tt.wantMatch, result.Match)
			assert.Equal(t, tt.wantType, result.MatchType)
			assert.Contains(t, result.Message, tt.wantMsg)
		})
	}
}
