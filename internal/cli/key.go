package cli

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

// loadPrivateKey returns the configured deployer key, prompting on in when
// none is configured.
func loadPrivateKey(configured string, in io.Reader, out io.Writer) (*ecdsa.PrivateKey, error) {
	hexKey := configured
	if hexKey == "" {
		fmt.Fprint(out, "Enter deployer private key: ")

		// Try to read without echo
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			raw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out) // New line after password input
			if err != nil {
				return nil, fmt.Errorf("failed to read private key: %w", err)
			}
			hexKey = string(raw)
		} else {
			// Non-terminal, read from stdin
			line, err := bufio.NewReader(in).ReadString('\n')
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read private key: %w", err)
			}
			hexKey = line
		}
	}

	return parsePrivateKey(hexKey)
}

func parsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, errors.New("private key cannot be empty (set DEPLOYER_PRIVATE_KEY)")
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func globalConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".casino-deployer"
	}
	return filepath.Join(home, ".casino-deployer")
}

func globalConfigPath() string {
	return filepath.Join(globalConfigDir(), "config.yaml")
}
