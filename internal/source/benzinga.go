package source

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/resilience"
)

const benzingaURL = "https://api.benzinga.com/api/v2.1/calendar/earnings"

// BenzingaAdapter reads the Benzinga earnings calendar API. It needs an
// API token.
type BenzingaAdapter struct {
	client  *Client
	baseURL string
	token   string
}

// NewBenzinga creates the Benzinga adapter. An empty baseURL selects the public API.
func NewBenzinga(client *Client, baseURL, token string) *BenzingaAdapter {
	if baseURL == "" {
		baseURL = benzingaURL
	}
	return &BenzingaAdapter{client: client, baseURL: baseURL, token: token}
}

func (b *BenzingaAdapter) Name() string { return Benzinga }

type benzingaResponse struct {
	Earnings []struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
		Date   string `json:"date"`
	} `json:"earnings"`
}

// Parse requests the earnings entries dated date.
func (b *BenzingaAdapter) Parse(ctx context.Context, date time.Time) ([]model.Company, error) {
	if b.token == "" {
		return nil, resilience.Permanent(eris.New("benzinga: api token not configured"))
	}

	day := date.Format(time.DateOnly)
	q := url.Values{}
	q.Set("token", b.token)
	q.Set("parameters[date]", day)
	q.Set("pagesize", "1000")

	body, err := b.client.Get(ctx, b.baseURL+"?"+q.Encode(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, eris.Wrap(err, "benzinga: fetch calendar")
	}

	var resp benzingaResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, eris.Wrap(err, "benzinga: decode calendar")
	}

	companies := make([]model.Company, 0, len(resp.Earnings))
	for _, e := range resp.Earnings {
		if e.Date != "" && e.Date != day {
			continue
		}
		c := model.NewCompany(e.Ticker, e.Name)
		if c.Valid() {
			companies = append(companies, c)
		}
	}
	return companies, nil
}
