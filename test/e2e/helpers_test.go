//go:build e2e

package e2e

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pendergraft/casino-deployer/internal/chains/evm"
	"github.com/pendergraft/casino-deployer/internal/contracts"
	"github.com/pendergraft/casino-deployer/internal/deployments/domain"
	verification "github.com/pendergraft/casino-deployer/internal/verification/domain"
	"github.com/pendergraft/casino-deployer/internal/verification/etherscan"
)

const (
	// anvil's first development account
	devKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	// initCode copies runtimeCode (10 bytes at offset 12) into memory and
	// returns it. Constructor arguments appended after it are ignored.
	initCode    = "0x600a600c600039600a6000f3602a60005260206000f3"
	runtimeCode = "0x602a60005260206000f3"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	AnvilContainer testcontainers.Container
	RPCURL         string
}

// setupAnvilE starts an anvil node and returns its HTTP endpoint
func setupAnvilE(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "ghcr.io/foundry-rs/foundry:latest",
		Entrypoint:   []string{"anvil"},
		Cmd:          []string{"--host", "0.0.0.0", "--chain-id", "31337"},
		ExposedPorts: []string{"8545/tcp"},
		WaitingFor: wait.ForListeningPort("8545/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start anvil container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get anvil host: %w", err)
	}
	port, err := container.MappedPort(ctx, "8545/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get anvil port: %w", err)
	}

	return container, fmt.Sprintf("http://%s:%s", host, port.Port()), nil
}

func devKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(devKeyHex)
	require.NoError(t, err)
	return key
}

func dialChain(t *testing.T) *evm.Chain {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chain, err := evm.Dial(ctx, testCtx.RPCURL, devKey(t), evm.WithPollInterval(200*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(chain.Close)
	return chain
}

// constructorABI returns an ABI with a single constructor of the given types
func constructorABI(types ...string) json.RawMessage {
	inputs := make([]map[string]string, len(types))
	for i, typ := range types {
		inputs[i] = map[string]string{"name": fmt.Sprintf("arg%d", i), "type": typ}
	}
	data, _ := json.Marshal([]map[string]any{{"type": "constructor", "inputs": inputs, "stateMutability": "nonpayable"}})
	return data
}

// writeFoundryProject lays out a Foundry build directory for the given
// contracts, all sharing the trivial init code, plus one build-info file.
func writeFoundryProject(t *testing.T, abis map[string]json.RawMessage) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte("[profile.default]\n"), 0644))

	outDir := filepath.Join(dir, "out")
	for name, abi := range abis {
		artifactDir := filepath.Join(outDir, name+".sol")
		require.NoError(t, os.MkdirAll(artifactDir, 0755))
		data, err := json.Marshal(map[string]any{
			"abi":              abi,
			"bytecode":         map[string]any{"object": initCode},
			"deployedBytecode": map[string]any{"object": runtimeCode},
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(artifactDir, name+".json"), data, 0644))
	}

	buildInfo, err := json.Marshal(map[string]any{
		"solcLongVersion": "0.8.28+commit.7893614a",
		"input": map[string]any{
			"language": "Solidity",
			"sources":  map[string]any{},
			"settings": map[string]any{},
		},
		"output": map[string]any{"contracts": map[string]any{}},
	})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "build-info"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "build-info", "e2e.json"), buildInfo, 0644))

	return dir
}

// casinoProject is the built-in pair: a 3-parameter token and a
// parameterless casino.
func casinoProject(t *testing.T) string {
	return writeFoundryProject(t, map[string]json.RawMessage{
		contracts.FriendshipBracelets: constructorABI("string", "string", "uint256"),
		contracts.DecentralizedCasino: json.RawMessage("[]"),
	})
}

func bindSpecs(t *testing.T, dir string) []domain.ContractSpec {
	t.Helper()
	builder, err := evm.SelectBuilder("auto", dir)
	require.NoError(t, err)
	specs, err := domain.BindFactories(contracts.Default(), evm.NewArtifactLoader(builder, dir))
	require.NoError(t, err)
	return specs
}

// fakeExplorer is an Etherscan v2 stand-in recording every submission
type fakeExplorer struct {
	*httptest.Server

	mu          sync.Mutex
	submissions []map[string]string
	rejectAll   bool
}

func newFakeExplorer(t *testing.T, rejectAll bool) *fakeExplorer {
	t.Helper()
	e := &fakeExplorer{rejectAll: rejectAll}
	e.Server = httptest.NewServer(http.HandlerFunc(e.handle))
	t.Cleanup(e.Close)
	return e
}

func (e *fakeExplorer) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Query().Get("action") {
	case "verifysourcecode":
		_ = r.ParseForm()
		e.mu.Lock()
		e.submissions = append(e.submissions, map[string]string{
			"address":         r.PostForm.Get("contractaddress"),
			"name":            r.PostForm.Get("contractname"),
			"compiler":        r.PostForm.Get("compilerversion"),
			"constructorArgs": r.PostForm.Get("constructorArguements"),
		})
		e.mu.Unlock()
		if e.rejectAll {
			_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Unable to locate ContractCode"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":"guid-e2e"}`))
	case "checkverifystatus":
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":"Pass - Verified"}`))
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func (e *fakeExplorer) Submissions() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]string(nil), e.submissions...)
}

func (e *fakeExplorer) verifier(chainID int64) domain.Verifier {
	client := etherscan.New(e.URL, "e2e-key", chainID,
		etherscan.WithHTTPClient(e.Client()),
		etherscan.WithRateLimit(1000),
	)
	return verification.NewService(client, chainID, verification.WithPolling(50*time.Millisecond, 5))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
