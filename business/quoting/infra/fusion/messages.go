package fusion

// Upstream DTOs. Optional fields are pointers and lifted to domain.Optional
// once the body has passed validation.

type presetDTO struct {
	AuctionDuration    *int64 `json:"auctionDuration" validate:"required,gte=0"`
	StartAuctionIn     *int64 `json:"startAuctionIn" validate:"omitempty,gte=0"`
	AuctionStartAmount string `json:"auctionStartAmount" validate:"required,numeric"`
	AuctionEndAmount   string `json:"auctionEndAmount" validate:"required,numeric"`
}

type usdPricesDTO struct {
	FromToken *string `json:"fromToken"`
	ToToken   *string `json:"toToken"`
	SrcToken  *string `json:"srcToken"`
	DstToken  *string `json:"dstToken"`
}

type pricesDTO struct {
	USD *usdPricesDTO `json:"usd"`
}

// quoteDTO is the same-chain quoter response.
type quoteDTO struct {
	QuoteID           *string              `json:"quoteId"`
	FromTokenAmount   string               `json:"fromTokenAmount" validate:"required,numeric"`
	ToTokenAmount     string               `json:"toTokenAmount" validate:"required,numeric"`
	Presets           map[string]presetDTO `json:"presets" validate:"required,min=1,dive"`
	RecommendedPreset string               `json:"recommended_preset"`
	Prices            *pricesDTO           `json:"prices"`
}

type timeLocksDTO struct {
	DstWithdrawal *int64 `json:"dstWithdrawal" validate:"omitempty,gte=0"`
}

// crossChainQuoteDTO is the cross-chain quoter response.
type crossChainQuoteDTO struct {
	QuoteID           *string              `json:"quoteId"`
	SrcTokenAmount    string               `json:"srcTokenAmount" validate:"required,numeric"`
	DstTokenAmount    string               `json:"dstTokenAmount" validate:"required,numeric"`
	Presets           map[string]presetDTO `json:"presets" validate:"required,min=1,dive"`
	RecommendedPreset string               `json:"recommendedPreset"`
	TimeLocks         *timeLocksDTO        `json:"timeLocks"`
	Prices            *pricesDTO           `json:"prices"`
}

type submitOrderDTO struct {
	Order     map[string]any `json:"order"`
	Signature string         `json:"signature"`
	QuoteID   string         `json:"quoteId"`
	Extension string         `json:"extension,omitempty"`
}

type fillDTO struct {
	TxHash string `json:"txHash"`
}

type orderStatusDTO struct {
	OrderHash string    `json:"orderHash"`
	Status    string    `json:"status" validate:"required"`
	Fills     []fillDTO `json:"fills"`
}
