//nolint:tagliatelle // CMC API uses snake case
package cmc

// responseStatus is the status block every CMC response carries
type responseStatus struct {
	Timestamp    string  `json:"timestamp"`
	ErrorCode    int     `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
	Elapsed      int64   `json:"elapsed"`
	CreditCount  int64   `json:"credit_count"`
}

// envelope is the wrapper shared by all CMC responses
type envelope[T any] struct {
	Status responseStatus `json:"status"`
	Data   T              `json:"data"`
}

// mapEntry is a single /v1/cryptocurrency/map entry
type mapEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Slug     string `json:"slug"`
	IsActive int    `json:"is_active"`
}

// usdQuote is the USD conversion block of a pair or asset quote
type usdQuote struct {
	Price     float64  `json:"price"`
	Volume24h *float64 `json:"volume_24h"`
}

// pairQuote holds the conversions reported for a market pair
type pairQuote struct {
	USD *usdQuote `json:"USD"`
}

// pairExchange identifies the venue a market pair trades on
type pairExchange struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// marketPair is a single /v1/cryptocurrency/market-pairs/latest row
type marketPair struct {
	Exchange   pairExchange `json:"exchange"`
	MarketID   int64        `json:"market_id"`
	MarketPair string       `json:"market_pair"`
	Category   string       `json:"category"`
	Quote      pairQuote    `json:"quote"`
}

// marketPairsData is the /v1/cryptocurrency/market-pairs/latest payload
type marketPairsData struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	Symbol         string       `json:"symbol"`
	NumMarketPairs int          `json:"num_market_pairs"`
	MarketPairs    []marketPair `json:"market_pairs"`
}

// quotesEntry is a single /v1/cryptocurrency/quotes/latest entry
type quotesEntry struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Quote  struct {
		USD *usdQuote `json:"USD"`
	} `json:"quote"`
}

// assetCurrency identifies the asset a reserve balance is held in
type assetCurrency struct {
	CryptoID int64  `json:"crypto_id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// exchangeAsset is a single /v1/exchange/assets balance row
type exchangeAsset struct {
	WalletAddress string        `json:"wallet_address"`
	Balance       float64       `json:"balance"`
	Platform      assetCurrency `json:"platform"`
	Currency      assetCurrency `json:"currency"`
}
