package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	// ErrMissingAddress is returned for empty address input
	ErrMissingAddress = errors.New("address is required")
	// ErrInvalidAddress is returned when an address is neither a valid
	// checksummed nor a valid lower-cased hex address
	ErrInvalidAddress = errors.New("invalid ethereum address")
)

// NormalizeAddress validates an address string and returns it in canonical
// form. Mixed-case input has to carry a correct EIP-55 checksum; if it does
// not, the lower-cased form is tried before the input is rejected.
func NormalizeAddress(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, ErrMissingAddress
	}
	if strings.HasPrefix(s, "0X") {
		return common.Address{}, errors.Wrapf(ErrInvalidAddress, "%q", s)
	}
	if isValidAddress(s) {
		return common.HexToAddress(s), nil
	}
	if lower := strings.ToLower(s); isValidAddress(lower) {
		return common.HexToAddress(lower), nil
	}
	return common.Address{}, errors.Wrapf(ErrInvalidAddress, "%q", s)
}

// isValidAddress accepts 40 hex digits with an optional 0x prefix, in one
// case or with a correct EIP-55 checksum
func isValidAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	hexPart := strings.TrimPrefix(s, "0x")
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return common.HexToAddress(hexPart).Hex()[2:] == hexPart
}
