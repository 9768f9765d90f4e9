package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is the identity record of a token. Its identity is the AssetID; the
// symbol is display metadata only. Assets are immutable once constructed.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
	network  string
	wrapped  bool
	verified bool
}

// Option customizes an Asset at construction.
type Option func(*Asset)

// WithName sets the human-readable name.
func WithName(name string) Option {
	return func(a *Asset) { a.name = name }
}

// WithNetwork overrides the network name derived from the chain id.
func WithNetwork(network string) Option {
	return func(a *Asset) { a.network = network }
}

// Wrapped marks the asset as a wrapped representation of a native coin.
func Wrapped() Option {
	return func(a *Asset) { a.wrapped = true }
}

// Unverified marks an asset the registry knows only by address.
func Unverified() Option {
	return func(a *Asset) { a.verified = false }
}

// NewAsset creates a new Asset. Assets are verified unless Unverified is passed.
func NewAsset(id AssetID, symbol string, decimals uint8, opts ...Option) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	a := &Asset{
		id:       id,
		symbol:   symbol,
		decimals: decimals,
		network:  NetworkName(id.ChainID()),
		verified: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAssetWithName creates a new Asset with a human-readable name.
func NewAssetWithName(id AssetID, symbol, name string, decimals uint8, opts ...Option) *Asset {
	return NewAsset(id, symbol, decimals, append([]Option{WithName(name)}, opts...)...)
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID {
	return a.id
}

// Symbol returns the ticker symbol (e.g., "ETH", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name (e.g., "Ethereum", "USD Coin").
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// ChainID returns the chain ID (0 for fiat).
func (a *Asset) ChainID() uint64 {
	return a.id.ChainID()
}

// Network returns the network name, e.g. "ethereum" or "bitcoin".
func (a *Asset) Network() string {
	return a.network
}

// IsNative returns true if this is a native coin.
func (a *Asset) IsNative() bool {
	return a.id.IsNative()
}

// IsWrapped returns true for wrapped native coins (WETH, WBTC).
func (a *Asset) IsWrapped() bool {
	return a.wrapped
}

// IsVerified returns false for placeholder assets discovered in upstream routes.
func (a *Asset) IsVerified() bool {
	return a.verified
}

// IsToken returns true if this is a contract token.
func (a *Asset) IsToken() bool {
	return a.id.IsToken()
}

// IsFiat returns true if this is a fiat currency.
func (a *Asset) IsFiat() bool {
	return a.id.IsFiat()
}

// IsEVM reports whether the asset lives on an EVM chain.
func (a *Asset) IsEVM() bool {
	return IsEVMChain(a.ChainID())
}

// String returns a human-readable representation.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}

// Address returns the token contract address (zero for native coins).
func (a *Asset) Address() common.Address {
	return a.id.Address()
}

// APIAddress returns the address form upstream quote APIs expect: the
// all-e placeholder for native coins and lower-case hex for tokens.
func (a *Asset) APIAddress() string {
	if a.IsNative() {
		return NativePlaceholderHex
	}
	return LowerHex(a.Address())
}
