package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

const tradingViewURL = "https://scanner.tradingview.com/america/scan"

// TradingViewAdapter queries the TradingView stock screener for companies
// whose earnings release falls on the target date.
type TradingViewAdapter struct {
	client  *Client
	baseURL string
	now     func() time.Time
}

// NewTradingView creates the TradingView adapter. An empty baseURL selects
// the public screener.
func NewTradingView(client *Client, baseURL string) *TradingViewAdapter {
	if baseURL == "" {
		baseURL = tradingViewURL
	}
	return &TradingViewAdapter{client: client, baseURL: baseURL, now: time.Now}
}

func (t *TradingViewAdapter) Name() string { return TradingView }

type tvFilter struct {
	Left      string  `json:"left"`
	Operation string  `json:"operation"`
	Right     []int64 `json:"right"`
}

type tvRequest struct {
	Filter  []tvFilter        `json:"filter"`
	Options map[string]string `json:"options"`
	Markets []string          `json:"markets"`
	Columns []string          `json:"columns"`
	Range   [2]int            `json:"range"`
}

type tvResponse struct {
	TotalCount int `json:"totalCount"`
	Data       []struct {
		S string `json:"s"`
		D []any  `json:"d"`
	} `json:"data"`
}

// releaseField picks the screener column: past days are matched against
// the last reported release, today and later against the next one.
func (t *TradingViewAdapter) releaseField(date time.Time) string {
	now := t.now().In(date.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	if date.Before(today) {
		return "earnings_release_date"
	}
	return "earnings_release_next_date"
}

// Parse returns the screener rows reporting on date.
func (t *TradingViewAdapter) Parse(ctx context.Context, date time.Time) ([]model.Company, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Second)

	req := tvRequest{
		Filter: []tvFilter{{
			Left:      t.releaseField(date),
			Operation: "in_range",
			Right:     []int64{from.Unix(), to.Unix()},
		}},
		Options: map[string]string{"lang": "en"},
		Markets: []string{"america"},
		Columns: []string{"name", "description"},
		Range:   [2]int{0, 2000},
	}

	body, err := t.client.PostJSON(ctx, t.baseURL, req, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, eris.Wrap(err, "tradingview: scan")
	}

	var resp tvResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, eris.Wrap(err, "tradingview: decode scan")
	}

	companies := make([]model.Company, 0, len(resp.Data))
	for _, row := range resp.Data {
		symbol := columnString(row.D, 0)
		if symbol == "" {
			// "NASDAQ:AAPL" -> "AAPL"
			_, symbol, _ = strings.Cut(row.S, ":")
		}
		c := model.NewCompany(symbol, columnString(row.D, 1))
		if c.Valid() {
			companies = append(companies, c)
		}
	}
	return companies, nil
}

func columnString(cols []any, i int) string {
	if i >= len(cols) {
		return ""
	}
	s, _ := cols[i].(string)
	return s
}
