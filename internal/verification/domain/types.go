// Package domain contains the business logic for explorer source verification.
package domain

// Submission is a source verification request as explorers accept it.
type Submission struct {
	ChainID      int64
	Address      string
	ContractName string // "src/Token.sol:Token"
	// CompilerVersion is normalized to "v0.8.28+commit.7893614a".
	CompilerVersion string
	StandardJSON    []byte
	// ConstructorArgs is the ABI-encoded tuple, hex without 0x.
	ConstructorArgs string
	// License is the explorer's license code, "" to leave it unset.
	License string
}

// licenseCodes maps SPDX identifiers to Etherscan licenseType values.
var licenseCodes = map[string]string{
	"UNLICENSED":        "1",
	"Unlicense":         "2",
	"MIT":               "3",
	"GPL-2.0":           "4",
	"GPL-2.0-only":      "4",
	"GPL-2.0-or-later":  "4",
	"GPL-3.0":           "5",
	"GPL-3.0-only":      "5",
	"GPL-3.0-or-later":  "5",
	"LGPL-2.1":          "6",
	"LGPL-2.1-only":     "6",
	"LGPL-2.1-or-later": "6",
	"LGPL-3.0":          "7",
	"LGPL-3.0-only":     "7",
	"LGPL-3.0-or-later": "7",
	"BSD-2-Clause":      "8",
	"BSD-3-Clause":      "9",
	"MPL-2.0":           "10",
	"OSL-3.0":           "11",
	"Apache-2.0":        "12",
	"AGPL-3.0":          "13",
	"AGPL-3.0-only":     "13",
	"AGPL-3.0-or-later": "13",
	"BUSL-1.1":          "14",
}

// LicenseCode returns the explorer license code for an SPDX identifier
func LicenseCode(spdx string) string {
	return licenseCodes[spdx]
}

// Status is the explorer's view of a submitted verification.
type Status struct {
	Pending  bool
	Verified bool
	Message  string
}
