package httpapi

import (
	"time"

	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

// routeRequest is the body of /v1/routes and /v1/predict. Tokens are
// symbols or addresses on their chain.
type routeRequest struct {
	From        string   `json:"from" validate:"required"`
	To          string   `json:"to" validate:"required"`
	Amount      string   `json:"amount" validate:"required"`
	ChainID     uint64   `json:"chainId,omitempty"`
	ToChainID   uint64   `json:"toChainId,omitempty"`
	Wallet      *string  `json:"wallet,omitempty" validate:"omitempty,eth_addr"`
	Preference  string   `json:"preference,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Slippage    *float64 `json:"slippage,omitempty"`
	GasPreset   string   `json:"gasPreset,omitempty"`
	GasPriceWei *string  `json:"gasPriceWei,omitempty"`
}

// outcomeRequest is the body of /v1/outcomes.
type outcomeRequest struct {
	From       string   `json:"from" validate:"required"`
	To         string   `json:"to" validate:"required"`
	ChainID    uint64   `json:"chainId,omitempty"`
	ToChainID  uint64   `json:"toChainId,omitempty"`
	Amount     string   `json:"amount"`
	RoutePath  []string `json:"routePath" validate:"required,min=1,dive,required"`
	DurationMs int64    `json:"durationMs" validate:"gte=0"`
	GasCost    uint64   `json:"gasCost"`
	Slippage   float64  `json:"slippage"`
	Success    bool     `json:"success"`
}

// orderRequest is the body of /v1/orders.
type orderRequest struct {
	ChainID uint64              `json:"chainId" validate:"required"`
	Order   quoting.SignedOrder `json:"order"`
}

type tokenDTO struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Native   bool   `json:"native,omitempty"`
	Verified bool   `json:"verified"`
}

type amountDTO struct {
	Value string `json:"value"`
	Raw   string `json:"raw"`
}

type stepDTO struct {
	Protocol string  `json:"protocol"`
	TokenIn  string  `json:"tokenIn"`
	TokenOut string  `json:"tokenOut"`
	Share    float64 `json:"share"`
}

type routeDTO struct {
	ID                string            `json:"id"`
	Provider          string            `json:"provider"`
	Kind              string            `json:"kind"`
	From              tokenDTO          `json:"from"`
	To                tokenDTO          `json:"to"`
	AmountIn          amountDTO         `json:"amountIn"`
	EstimatedOut      amountDTO         `json:"estimatedOut"`
	Steps             []stepDTO         `json:"steps"`
	EstimatedGas      uint64            `json:"estimatedGas"`
	EstimatedTime     float64           `json:"estimatedTimeSeconds"`
	PriceImpact       float64           `json:"priceImpact"`
	Risks             []string          `json:"risks"`
	Advantages        []string          `json:"advantages"`
	QuoteID           string            `json:"quoteId,omitempty"`
	Confidence        float64           `json:"confidence"`
	RiskScore         float64           `json:"riskScore"`
	SavingsEstimate   float64           `json:"savingsEstimate"`
	ExecutionTime     float64           `json:"executionTime"`
	GasOptimization   float64           `json:"gasOptimization"`
	GasDelta          int64             `json:"gasDelta"`
	Components        domain.Components `json:"components"`
	HistoryAdjustment float64           `json:"historyAdjustment"`
}

type routesResponse struct {
	Routes           []routeDTO `json:"routes"`
	Insights         []string   `json:"insights"`
	Cached           bool       `json:"cached"`
	Fingerprint      string     `json:"fingerprint"`
	ProvidersQueried []string   `json:"providersQueried,omitempty"`
	ProvidersFailed  []string   `json:"providersFailed,omitempty"`
}

type predictionResponse struct {
	OptimalSlippage    float64   `json:"optimalSlippage"`
	PredictedGas       uint64    `json:"predictedGas"`
	SuccessProbability float64   `json:"successProbability"`
	EstimatedTime      float64   `json:"estimatedTimeSeconds"`
	RecommendedRoute   *routeDTO `json:"recommendedRoute"`
	RouteOrdering      []string  `json:"routeOrdering"`
	VolatilitySamples  int       `json:"volatilitySamples"`
	Fingerprint        string    `json:"fingerprint"`
}

func toTokenDTO(a *asset.Asset) tokenDTO {
	if a == nil {
		return tokenDTO{}
	}
	return tokenDTO{
		Symbol:   a.Symbol(),
		Name:     a.Name(),
		ChainID:  a.ChainID(),
		Address:  a.APIAddress(),
		Decimals: a.Decimals(),
		Native:   a.IsNative(),
		Verified: a.IsVerified(),
	}
}

func toAmountDTO(a asset.Amount) amountDTO {
	if a.Asset() == nil {
		return amountDTO{Value: "0", Raw: "0"}
	}
	return amountDTO{Value: a.ToDecimal().String(), Raw: a.RawString()}
}

func symbolOf(a *asset.Asset) string {
	if a == nil {
		return ""
	}
	return a.Symbol()
}

func toRouteDTO(r domain.ScoredRoute) routeDTO {
	steps := make([]stepDTO, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = stepDTO{
			Protocol: s.Protocol,
			TokenIn:  symbolOf(s.TokenIn),
			TokenOut: symbolOf(s.TokenOut),
			Share:    s.Share,
		}
	}
	return routeDTO{
		ID:                r.ID,
		Provider:          r.Provider,
		Kind:              string(r.Kind),
		From:              toTokenDTO(r.From),
		To:                toTokenDTO(r.To),
		AmountIn:          toAmountDTO(r.AmountIn),
		EstimatedOut:      toAmountDTO(r.EstimatedOut),
		Steps:             steps,
		EstimatedGas:      r.EstimatedGas,
		EstimatedTime:     r.EstimatedTime.Seconds(),
		PriceImpact:       r.PriceImpact,
		Risks:             nonNil(r.Risks),
		Advantages:        nonNil(r.Advantages),
		QuoteID:           r.QuoteID,
		Confidence:        r.Confidence,
		RiskScore:         r.RiskScore,
		SavingsEstimate:   r.SavingsEstimate,
		ExecutionTime:     r.ExecutionTime,
		GasOptimization:   r.GasOptimization,
		GasDelta:          r.GasDelta,
		Components:        r.Components,
		HistoryAdjustment: r.HistoryAdjustment,
	}
}

func toRoutesResponse(res domain.RouteResult, insights []string) routesResponse {
	routes := make([]routeDTO, len(res.Routes))
	for i, r := range res.Routes {
		routes[i] = toRouteDTO(r)
	}
	return routesResponse{
		Routes:           routes,
		Insights:         nonNil(insights),
		Cached:           res.Cached,
		Fingerprint:      res.Fingerprint,
		ProvidersQueried: res.ProvidersQueried,
		ProvidersFailed:  res.ProvidersFailed,
	}
}

func toPredictionResponse(p domain.Prediction) predictionResponse {
	resp := predictionResponse{
		OptimalSlippage:    p.OptimalSlippage,
		PredictedGas:       p.PredictedGas,
		SuccessProbability: p.SuccessProbability,
		EstimatedTime:      p.EstimatedTime.Round(time.Millisecond).Seconds(),
		RouteOrdering:      nonNil(p.RouteOrdering),
		VolatilitySamples:  p.VolatilitySamples,
		Fingerprint:        p.Fingerprint,
	}
	if p.RecommendedRoute != nil {
		dto := toRouteDTO(*p.RecommendedRoute)
		resp.RecommendedRoute = &dto
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
