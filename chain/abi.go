package chain

import (
	"bytes"
	_ "embed" // for go:embed
	"encoding/json"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/eduConsent.json
var eduConsentABIJSON []byte

//go:embed abi/eduIdentity.json
var eduIdentityABIJSON []byte

//go:embed abi/eduToken.json
var eduTokenABIJSON []byte

// Event names emitted by the EduConsent contract
const (
	EventConsentGranted = "ConsentGranted"
	EventConsentRevoked = "ConsentRevoked"
)

// Parsed ABIs of the three deployed contracts
var (
	ConsentABI  = mustParseABI(eduConsentABIJSON)
	IdentityABI = mustParseABI(eduIdentityABIJSON)
	TokenABI    = mustParseABI(eduTokenABIJSON)
)

func mustParseABI(raw []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// RawABIs returns the JSON ABI documents keyed by the names the UI expects
func RawABIs() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"eduIdentity": eduIdentityABIJSON,
		"eduConsent":  eduConsentABIJSON,
		"eduToken":    eduTokenABIJSON,
	}
}
