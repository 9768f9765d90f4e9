// Package asset provides a type-safe model for crypto assets and amounts.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (parsing, display).
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativePlaceholderHex is the conventional all-e address upstream APIs use
// for native coins.
const NativePlaceholderHex = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

var nativePlaceholder = common.HexToAddress(NativePlaceholderHex)

// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
var ErrInvalidAddress = errors.New("asset: invalid address")

// AssetID uniquely identifies an asset by chain and contract address.
// For native coins (ETH, BNB, BTC), address is zero.
type AssetID struct {
	chainID uint64
	address common.Address // zero = native coin
}

// NewNativeAssetID creates an AssetID for a native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for a contract token. The native
// placeholder address is folded into the native id.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if IsNativeAddress(addr) {
		return NewNativeAssetID(chainID)
	}
	return AssetID{chainID: chainID, address: addr}
}

// NewFiatAssetID creates an AssetID for fiat currencies (chain 0).
func NewFiatAssetID(symbol string) AssetID {
	hash := common.BytesToAddress(common.RightPadBytes([]byte(symbol), 20))
	return AssetID{chainID: 0, address: hash}
}

// ChainID returns the chain ID (0 for fiat).
func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the token contract address (zero for native coins).
func (id AssetID) Address() common.Address {
	return id.address
}

// IsNative returns true if this is a native coin.
func (id AssetID) IsNative() bool {
	return id.chainID != 0 && id.address == (common.Address{})
}

// IsToken returns true if this is a contract token.
func (id AssetID) IsToken() bool {
	return id.chainID != 0 && id.address != (common.Address{})
}

// IsFiat returns true if this is a fiat currency.
func (id AssetID) IsFiat() bool {
	return id.chainID == 0
}

// String returns a stable representation, also used in cache fingerprints.
func (id AssetID) String() string {
	if id.IsFiat() {
		return fmt.Sprintf("fiat:%s", id.address.Hex()[:10])
	}
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, LowerHex(id.address))
}

// Equals compares two AssetIDs for equality.
func (id AssetID) Equals(other AssetID) bool {
	return id.chainID == other.chainID && id.address == other.address
}

// IsNativeAddress reports whether addr is one of the native markers:
// the zero address or the all-e placeholder.
func IsNativeAddress(addr common.Address) bool {
	return addr == (common.Address{}) || addr == nativePlaceholder
}

// NormalizeAddress parses a hex address. Native markers normalize to the
// zero address and report native=true.
func NormalizeAddress(s string) (addr common.Address, native bool, err error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, false, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	addr = common.HexToAddress(s)
	if IsNativeAddress(addr) {
		return common.Address{}, true, nil
	}
	return addr, false, nil
}

// SameAddress compares two address strings case-insensitively, treating both
// native markers as equal.
func SameAddress(a, b string) bool {
	x, xn, errX := NormalizeAddress(a)
	y, yn, errY := NormalizeAddress(b)
	if errX != nil || errY != nil {
		return false
	}
	if xn || yn {
		return xn == yn
	}
	return x == y
}

// LowerHex returns the lower-case 0x-prefixed hex form of addr.
func LowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
