package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const cryptoPriceURL = "https://api.coingecko.com/api/v3/simple/price" +
	"?ids=bitcoin,ethereum&vs_currencies=usd,eur&include_24hr_change=true"

type CryptoAsset struct {
	USD       float64 `json:"usd"`
	EUR       float64 `json:"eur"`
	Change24h string  `json:"change24h"`
}

type CryptoResult struct {
	Type      Kind                   `json:"type"`
	Data      map[string]CryptoAsset `json:"data,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Err       string                 `json:"error,omitempty"`
}

type coingeckoQuote struct {
	USD       float64 `json:"usd"`
	EUR       float64 `json:"eur"`
	Change24h float64 `json:"usd_24h_change"`
}

// Crypto fetches spot price and 24h change for the two fixed assets.
func (s *Service) Crypto(ctx context.Context) CryptoResult {
	quotes, err := s.fetchQuotes(ctx)
	if err != nil {
		log.Printf("[skill:crypto] fetch failed: %v", err)
		return CryptoResult{Type: KindCrypto, Err: "Crypto-Daten nicht verfügbar"}
	}

	data := make(map[string]CryptoAsset, len(quotes))
	for asset, q := range quotes {
		data[asset] = CryptoAsset{
			USD:       q.USD,
			EUR:       q.EUR,
			Change24h: fmt.Sprintf("%.2f", q.Change24h),
		}
	}

	return CryptoResult{
		Type:      KindCrypto,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *Service) fetchQuotes(ctx context.Context) (map[string]coingeckoQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cryptoPriceURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("price api status %d: %s", res.StatusCode, string(body))
	}

	var quotes map[string]coingeckoQuote
	if err := json.NewDecoder(res.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	if _, ok := quotes["bitcoin"]; !ok {
		return nil, fmt.Errorf("price api response missing bitcoin")
	}
	return quotes, nil
}
