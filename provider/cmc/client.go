package cmc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/JeremyNoori/xdc-risk-monitor/retry"
	"github.com/JeremyNoori/xdc-risk-monitor/settings"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

const (
	defaultBaseURL = "https://pro-api.coinmarketcap.com"
	defaultTimeout = time.Second * 30

	apiKeyHeader = "X-CMC_PRO_API_KEY" //nolint:gosec // header name, not a credential

	// maxPairs caps the market-pairs pull
	maxPairs = 5000

	// errBodyLimit bounds how much of an error response body is kept
	errBodyLimit = 500
)

var (
	// ErrAssetNotFound is returned when no active map entry matches the symbol
	ErrAssetNotFound = errors.New("asset not found among active map entries")

	// ErrQuoteNotFound is returned when the quote response has no entry
	// for the requested asset id
	ErrQuoteNotFound = errors.New("quote not found in response")
)

// StatusError is a non-2xx HTTP response from the provider
type StatusError struct {
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("CMC returned status %d: %s", e.StatusCode, e.Body)
}

// APIError is a provider-reported application error
// (HTTP 2xx with a non-zero status.error_code)
type APIError struct {
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CMC error %d: %s", e.Code, e.Message)
}

// KeyResolver resolves the provider API key
type KeyResolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// Client is an authenticated CoinMarketCap API client.
// Responses are never cached; every call reaches the live endpoint
type Client struct {
	baseURL string
	client  *http.Client
	keys    KeyResolver
	retry   *retry.Policy
	logger  *slog.Logger

	// credits accumulates the credit_count reported by every response.
	// Callers read deltas around a unit of work
	credits atomic.Int64
}

// NewClient creates a new CMC API client
func NewClient(keys KeyResolver, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		keys:   keys,
		retry:  retry.NewPolicy(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Apply the options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Credits returns the cumulative API credits spent by this client
func (c *Client) Credits() int64 {
	return c.credits.Load()
}

// ResolveAssetID looks up the provider's internal id for the given
// asset symbol among active map entries
func (c *Client) ResolveAssetID(ctx context.Context, symbol string) (int64, error) {
	params := url.Values{
		"symbol": []string{symbol},
	}

	entries, err := fetchWithRetry[[]mapEntry](ctx, c, "/v1/cryptocurrency/map", params)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.Symbol == symbol && entry.IsActive == 1 {
			return entry.ID, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrAssetNotFound, symbol)
}

// MarketPairs pulls all market pairs for the given asset id,
// USD-converted and capped at 5000 rows. A pair missing its USD
// volume is reported with volume 0
func (c *Client) MarketPairs(ctx context.Context, assetID int64) ([]*types.MarketPair, error) {
	params := url.Values{
		"id":      []string{strconv.FormatInt(assetID, 10)},
		"convert": []string{"USD"},
		"limit":   []string{strconv.Itoa(maxPairs)},
	}

	data, err := fetchWithRetry[marketPairsData](
		ctx,
		c,
		"/v1/cryptocurrency/market-pairs/latest",
		params,
	)
	if err != nil {
		return nil, err
	}

	pairs := make([]*types.MarketPair, 0, len(data.MarketPairs))

	for _, mp := range data.MarketPairs {
		var volume float64

		if mp.Quote.USD != nil && mp.Quote.USD.Volume24h != nil {
			volume = *mp.Quote.USD.Volume24h
		}

		pairs = append(pairs, &types.MarketPair{
			ExchangeID:   mp.Exchange.ID,
			ExchangeName: mp.Exchange.Name,
			MarketPair:   mp.MarketPair,
			Volume24hUSD: volume,
		})
	}

	return pairs, nil
}

// Price fetches the current USD unit price for the given asset id
func (c *Client) Price(ctx context.Context, assetID int64) (float64, error) {
	params := url.Values{
		"id":      []string{strconv.FormatInt(assetID, 10)},
		"convert": []string{"USD"},
	}

	data, err := fetchWithRetry[map[string]quotesEntry](
		ctx,
		c,
		"/v1/cryptocurrency/quotes/latest",
		params,
	)
	if err != nil {
		return 0, err
	}

	entry, ok := data[strconv.FormatInt(assetID, 10)]
	if !ok || entry.Quote.USD == nil {
		return 0, fmt.Errorf("%w: id %d", ErrQuoteNotFound, assetID)
	}

	return entry.Quote.USD.Price, nil
}

// ReserveAssets is the best-effort reserve lookup for a venue.
// It is tried exactly once, never retried, and never propagates an
// error: the result is a tagged FOUND / ABSENT / FAILED variant.
// The endpoint may be entirely unavailable for a venue or plan tier;
// a provider rejection is ABSENT, a broken call is FAILED
func (c *Client) ReserveAssets(ctx context.Context, exchangeID int64) *types.ReserveLookup {
	params := url.Values{
		"id": []string{strconv.FormatInt(exchangeID, 10)},
	}

	rows, err := fetchOnce[[]exchangeAsset](ctx, c, "/v1/exchange/assets", params)
	if err != nil {
		if isUnsupported(err) {
			c.logger.Debug(
				"reserve assets unavailable for venue",
				"exchange_id", exchangeID,
				"err", err,
			)

			return &types.ReserveLookup{Outcome: types.ReserveAbsent}
		}

		return &types.ReserveLookup{
			Outcome: types.ReserveFailed,
			Err:     err,
		}
	}

	assets := make([]*types.ReserveAsset, 0, len(rows))

	for _, row := range rows {
		assets = append(assets, &types.ReserveAsset{
			CurrencySymbol: row.Currency.Symbol,
			PlatformSymbol: row.Platform.Symbol,
			Balance:        row.Balance,
		})
	}

	return &types.ReserveLookup{
		Outcome: types.ReserveFound,
		Assets:  assets,
	}
}

// fetchWithRetry performs an authenticated GET with the client's
// backoff policy. The API key is resolved once, up front, so a missing
// credential fails immediately instead of being retried
func fetchWithRetry[T any](
	ctx context.Context,
	c *Client,
	path string,
	params url.Values,
) (T, error) {
	var out T

	apiKey, err := c.keys.Resolve(ctx, settings.KeyAPIKey)
	if err != nil {
		return out, fmt.Errorf("unable to resolve API key: %w", err)
	}

	err = c.retry.Do(ctx, func(ctx context.Context) error {
		data, fetchErr := doFetch[T](ctx, c, path, params, apiKey)
		if fetchErr != nil {
			c.logger.Debug(
				"CMC fetch attempt failed",
				"path", path,
				"err", fetchErr,
			)

			return fetchErr
		}

		out = data

		return nil
	})

	return out, err
}

// fetchOnce performs a single authenticated GET with no retry
func fetchOnce[T any](
	ctx context.Context,
	c *Client,
	path string,
	params url.Values,
) (T, error) {
	var out T

	apiKey, err := c.keys.Resolve(ctx, settings.KeyAPIKey)
	if err != nil {
		return out, fmt.Errorf("unable to resolve API key: %w", err)
	}

	return doFetch[T](ctx, c, path, params, apiKey)
}

// doFetch executes one request and decodes the CMC envelope,
// accumulating the reported credit usage
func doFetch[T any](
	ctx context.Context,
	c *Client,
	path string,
	params url.Values,
	apiKey string,
) (T, error) {
	var zero T

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return zero, fmt.Errorf("unable to create GET request: %w", err)
	}

	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))

		return zero, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var env envelope[T]

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fmt.Errorf("unable to decode response: %w", err)
	}

	c.credits.Add(env.Status.CreditCount)

	if env.Status.ErrorCode != 0 {
		var message string

		if env.Status.ErrorMessage != nil {
			message = *env.Status.ErrorMessage
		}

		return zero, &APIError{
			Code:    env.Status.ErrorCode,
			Message: message,
		}
	}

	return env.Data, nil
}

// isUnsupported reports whether the error means the provider answered
// and rejected the request (endpoint or plan unavailable), as opposed
// to the call itself breaking
func isUnsupported(err error) bool {
	var statusErr *StatusError

	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
	}

	var apiErr *APIError

	return errors.As(err, &apiErr)
}
