package evm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

const (
	MatchFull    = "full"
	MatchPartial = "partial"
	MatchNone    = "none"
)

// splitMetadata separates runtime code from the CBOR metadata solc appends.
// The trailing two bytes are the metadata length, big endian, and the
// metadata starts with a CBOR map header.
func splitMetadata(code []byte) (exec, meta []byte) {
	if len(code) < 2 {
		return code, nil
	}
	n := int(binary.BigEndian.Uint16(code[len(code)-2:]))
	start := len(code) - 2 - n
	if n == 0 || start < 0 {
		return code, nil
	}
	if h := code[start]; h < 0xa1 || h > 0xb7 {
		return code, nil
	}
	return code[:start], code[start:]
}

// StripMetadata returns runtime code without its trailing compiler metadata
func StripMetadata(code []byte) []byte {
	exec, _ := splitMetadata(code)
	return exec
}

// CompareBytecode compares code read from the chain with the artifact's
// deployed bytecode. Immutables are zero in the artifact and filled in by the
// constructor, so differences confined to zeroed artifact bytes still count
// as a partial match.
func CompareBytecode(deployed, artifact []byte) *chains.VerifyResult {
	if len(deployed) == 0 {
		return &chains.VerifyResult{MatchType: MatchNone, Message: "no code at address"}
	}
	if bytes.Equal(deployed, artifact) {
		return &chains.VerifyResult{Match: true, MatchType: MatchFull, Message: "runtime code matches exactly"}
	}

	onChain, onChainMeta := splitMetadata(deployed)
	built, _ := splitMetadata(artifact)

	if len(onChain) != len(built) {
		return &chains.VerifyResult{
			MatchType: MatchNone,
			Message:   fmt.Sprintf("runtime code is %d bytes on chain, %d in the artifact", len(onChain), len(built)),
		}
	}

	if bytes.Equal(onChain, built) && onChainMeta != nil {
		return &chains.VerifyResult{Match: true, MatchType: MatchPartial, Message: "executable code matches, metadata differs"}
	}

	for i := range built {
		if onChain[i] != built[i] && built[i] != 0 {
			return &chains.VerifyResult{
				MatchType: MatchNone,
				Message:   fmt.Sprintf("runtime code differs at byte %d", i),
			}
		}
	}
	return &chains.VerifyResult{Match: true, MatchType: MatchPartial, Message: "code matches apart from immutable values"}
}
