package usage

import "math"

// Tokens are the four counters reported by the provider for one call.
type Tokens struct {
	InputTokens         int64 `json:"inputTokens"`
	OutputTokens        int64 `json:"outputTokens"`
	CacheCreationTokens int64 `json:"cacheCreationTokens"`
	CacheReadTokens     int64 `json:"cacheReadTokens"`
}

// Pricing is in US dollars per million tokens.
type Pricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
}

var DefaultPricing = Pricing{
	InputPerMTok:      3.00,
	OutputPerMTok:     15.00,
	CacheWritePerMTok: 3.75,
	CacheReadPerMTok:  0.30,
}

func EstimateCostCents(t Tokens) int64 { return DefaultPricing.EstimateCostCents(t) }

func (p Pricing) EstimateCostCents(t Tokens) int64 {
	dollars := float64(t.InputTokens)/1e6*p.InputPerMTok +
		float64(t.OutputTokens)/1e6*p.OutputPerMTok +
		float64(t.CacheCreationTokens)/1e6*p.CacheWritePerMTok +
		float64(t.CacheReadTokens)/1e6*p.CacheReadPerMTok
	return int64(math.Round(dollars * 100))
}
