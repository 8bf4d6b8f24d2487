// Package validation provides input validation for the deployer.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Contract names are Solidity identifiers
var contractNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateContractName validates a contract name
func ValidateContractName(name string) error {
	if name == "" {
		return errors.New("contract name cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("contract name too long (max 128 chars)")
	}
	if !contractNameRegex.MatchString(name) {
		return fmt.Errorf("invalid contract name %q: must be a Solidity identifier", name)
	}
	return nil
}

// NormalizeCompilerVersion returns a solc version in the form explorers
// expect: "v0.8.28+commit.7893614a". The commit hash is required.
func NormalizeCompilerVersion(v string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(v), "v")
	if normalized == "" {
		return "", errors.New("compiler version cannot be empty")
	}

	// semver library expects version to start with 'v'
	versionWithV := "v" + normalized
	if !semver.IsValid(versionWithV) {
		return "", fmt.Errorf("invalid compiler version %q", v)
	}

	// Require major.minor.patch; semver accepts "v0.8" too
	mainPart, _, _ := strings.Cut(normalized, "+")
	mainPart, _, _ = strings.Cut(mainPart, "-")
	if strings.Count(mainPart, ".") < 2 {
		return "", fmt.Errorf("invalid compiler version %q: must be X.Y.Z", v)
	}

	if semver.Build(versionWithV) == "" {
		return "", fmt.Errorf("compiler version %q has no commit hash", v)
	}

	return versionWithV, nil
}

// IsNightly checks if a compiler version is a nightly/prerelease build
func IsNightly(v string) bool {
	normalized := "v" + strings.TrimPrefix(v, "v")
	return semver.Prerelease(normalized) != ""
}

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ValidateEndpoint validates an RPC or API URL
func ValidateEndpoint(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("invalid URL %q: scheme must be one of %s", raw, strings.Join(schemes, ", "))
}
