package dexscreener

// tokenPairsResponse mirrors the DexScreener /latest/dex/tokens response.
type tokenPairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []pair `json:"pairs"`
}

type pair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	URL         string     `json:"url"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   tokenMeta  `json:"baseToken"`
	QuoteToken  tokenMeta  `json:"quoteToken"`
	PriceUsd    string     `json:"priceUsd"`
	Liquidity   *liquidity `json:"liquidity"`
	Volume      volume     `json:"volume"`
}

type tokenMeta struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type volume struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}
