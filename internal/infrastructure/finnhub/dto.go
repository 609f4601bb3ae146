package finnhub

import "github.com/shopspring/decimal"

// Finnhub payloads are loose JSON; every field is optional and decodes to its
// zero value when missing.

// quoteDTO mirrors GET /quote. c == 0 means the vendor has no data.
type quoteDTO struct {
	Current       decimal.Decimal `json:"c"`
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	Open          decimal.Decimal `json:"o"`
	PreviousClose decimal.Decimal `json:"pc"`
	Timestamp     int64           `json:"t"`
}

// CompanyProfile mirrors GET /stock/profile2.
type CompanyProfile struct {
	Country              string          `json:"country"`
	Currency             string          `json:"currency"`
	Exchange             string          `json:"exchange"`
	IPO                  string          `json:"ipo"`
	MarketCapitalization decimal.Decimal `json:"marketCapitalization"`
	Name                 string          `json:"name"`
	Ticker               string          `json:"ticker"`
	WebURL               string          `json:"weburl"`
	Logo                 string          `json:"logo"`
	FinnhubIndustry      string          `json:"finnhubIndustry"`
	ShareOutstanding     decimal.Decimal `json:"shareOutstanding"`
}

func (p *CompanyProfile) isEmpty() bool {
	return p.Name == "" && p.Ticker == "" && p.Exchange == ""
}

// metricEnvelope wraps GET /stock/metric?metric=all.
type metricEnvelope struct {
	Metric *BasicFinancials `json:"metric"`
}

// BasicFinancials carries the slow-moving per-symbol metrics the detail view
// surfaces. Finnhub returns many more; only these are read.
type BasicFinancials struct {
	FiftyTwoWeekHigh     decimal.Decimal `json:"52WeekHigh"`
	FiftyTwoWeekLow      decimal.Decimal `json:"52WeekLow"`
	Beta                 decimal.Decimal `json:"beta"`
	PERatio              decimal.Decimal `json:"peBasicExclExtraTTM"`
	EPS                  decimal.Decimal `json:"epsBasicExclExtraItemsTTM"`
	DividendYield        decimal.Decimal `json:"dividendYieldIndicatedAnnual"`
	AvgVolume10Day       decimal.Decimal `json:"10DayAverageTradingVolume"`
	MarketCapitalization decimal.Decimal `json:"marketCapitalization"`
	YTDPriceReturn       decimal.Decimal `json:"yearToDatePriceReturnDaily"`
}

// RecommendationTrend mirrors one entry of GET /stock/recommendation.
type RecommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// searchEnvelope wraps GET /search.
type searchEnvelope struct {
	Count  int            `json:"count"`
	Result []SearchResult `json:"result"`
}

type SearchResult struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

// Candles mirrors GET /stock/candle. Status "no_data" means absent.
type Candles struct {
	Open       []decimal.Decimal `json:"o"`
	High       []decimal.Decimal `json:"h"`
	Low        []decimal.Decimal `json:"l"`
	Close      []decimal.Decimal `json:"c"`
	Volume     []decimal.Decimal `json:"v"`
	Timestamps []int64           `json:"t"`
	Status     string            `json:"s"`
}

// tradeFrame mirrors an inbound websocket message. Non-trade types are
// ignored by the streamer.
type tradeFrame struct {
	Type string     `json:"type"`
	Data []tradeDTO `json:"data"`
}

type tradeDTO struct {
	Symbol    string          `json:"s"`
	Price     decimal.Decimal `json:"p"`
	Timestamp int64           `json:"t"`
	Volume    decimal.Decimal `json:"v"`
}

type subscribeFrame struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}
