package validation

import (
	"testing"
)

func TestValidateContractName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "DecentralizedCasino", false},
		{"underscore", "_Token2", false},
		{"dollar", "$Vault", false},
		{"empty", "", true},
		{"leading digit", "2Token", true},
		{"path", "src/Token.sol:Token", true},
		{"space", "My Token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContractName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContractName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeCompilerVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"0.8.28+commit.7893614a", "v0.8.28+commit.7893614a", false},
		{"v0.8.20+commit.a1b2c3d4", "v0.8.20+commit.a1b2c3d4", false},
		{" 0.8.24+commit.e11b9ed9 ", "v0.8.24+commit.e11b9ed9", false},
		{"0.8.29-nightly.2025.1.1+commit.abcdef12", "v0.8.29-nightly.2025.1.1+commit.abcdef12", false},
		{"0.8.28", "", true},
		{"0.8+commit.7893614a", "", true},
		{"latest", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeCompilerVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeCompilerVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("NormalizeCompilerVersion(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsNightly(t *testing.T) {
	if !IsNightly("0.8.29-nightly.2025.1.1+commit.abcdef12") {
		t.Error("expected nightly build")
	}
	if IsNightly("v0.8.28+commit.7893614a") {
		t.Error("expected release build")
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid address", "0x1234567890abcdef1234567890abcdef12345678", false},
		{"valid uppercase", "0x1234567890ABCDEF1234567890ABCDEF12345678", false},
		{"missing 0x", "1234567890abcdef1234567890abcdef12345678", true},
		{"too short", "0x1234", true},
		{"too long", "0x1234567890abcdef1234567890abcdef123456789", true},
		{"invalid characters", "0x1234567890abcdef1234567890abcdef1234567g", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChainID(t *testing.T) {
	if err := ValidateChainID(11155111); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateChainID(0); err == nil {
		t.Error("expected error for zero chain ID")
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		schemes []string
		wantErr bool
	}{
		{"https", "https://sepolia.infura.io/v3/key", nil, false},
		{"local http", "http://127.0.0.1:8545", nil, false},
		{"websocket allowed", "wss://node.example/ws", []string{"http", "https", "ws", "wss"}, false},
		{"websocket not allowed", "wss://node.example/ws", nil, true},
		{"no host", "http://", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpoint(tt.input, tt.schemes...)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
