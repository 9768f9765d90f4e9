package oneinch

type tokenInfoDTO struct {
	Address  string `json:"address" validate:"required"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals *uint8 `json:"decimals" validate:"omitempty,lte=30"`
}

// splitDTO is one venue's part of a hop. Part is a percentage.
type splitDTO struct {
	Name             string  `json:"name" validate:"required"`
	Part             float64 `json:"part" validate:"gt=0,lte=100"`
	FromTokenAddress string  `json:"fromTokenAddress" validate:"required"`
	ToTokenAddress   string  `json:"toTokenAddress" validate:"required"`
}

// quoteDTO is the swap quote response. Protocols nest routes, hops and splits.
type quoteDTO struct {
	SrcToken  *tokenInfoDTO  `json:"srcToken"`
	DstToken  *tokenInfoDTO  `json:"dstToken"`
	DstAmount string         `json:"dstAmount" validate:"required,numeric"`
	Protocols [][][]splitDTO `json:"protocols" validate:"omitempty,dive,dive,min=1,dive"`
	Gas       *uint64        `json:"gas"`
}

type errorDTO struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	StatusCode  int    `json:"statusCode"`
}
