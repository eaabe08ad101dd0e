package source

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/calendar"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/resilience"
)

const marketWatchURL = "https://www.marketwatch.com/tools/earnings-calendar"

const (
	mwSymbolSelector = `td[class="overflow__cell align--left"] > div > a`
	mwNameSelector   = `td[class="overflow__cell fixed--column align--left"] > div.cell__content.fixed--cell > a`
)

// MarketWatchAdapter reads the weekly MarketWatch earnings calendar. The
// page renders one tab pane per weekday, keyed by MM/DD/YYYY.
type MarketWatchAdapter struct {
	client  *Client
	baseURL string
	now     func() time.Time
}

// NewMarketWatch creates the MarketWatch adapter. An empty baseURL selects
// the public calendar page.
func NewMarketWatch(client *Client, baseURL string) *MarketWatchAdapter {
	if baseURL == "" {
		baseURL = marketWatchURL
	}
	return &MarketWatchAdapter{client: client, baseURL: baseURL, now: time.Now}
}

func (m *MarketWatchAdapter) Name() string { return MarketWatch }

// Parse fetches the calendar and reads the rows of date's pane.
func (m *MarketWatchAdapter) Parse(ctx context.Context, date time.Time) ([]model.Company, error) {
	// The page only renders the current Sunday-to-Saturday week.
	now := m.now().In(date.Location())
	first, last := calendar.WeekRange(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location()))
	if date.Before(first) || date.After(last) {
		return nil, resilience.Permanent(eris.Errorf("marketwatch: %s is outside the current week (%s - %s)",
			date.Format(time.DateOnly), first.Format(time.DateOnly), last.Format(time.DateOnly)))
	}

	body, err := m.client.Get(ctx, m.baseURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "marketwatch: fetch calendar")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "marketwatch: parse calendar")
	}

	paneKey := date.Format("01/02/2006")
	pane := doc.Find(fmt.Sprintf(`div.element[data-tab-pane="%s"]`, paneKey))
	if pane.Length() == 0 {
		return nil, eris.Errorf("marketwatch: no calendar pane for %s", paneKey)
	}

	var companies []model.Company
	pane.Find("table > tbody > tr").Each(func(_ int, row *goquery.Selection) {
		c := model.NewCompany(cleanText(row.Find(mwSymbolSelector)), cleanText(row.Find(mwNameSelector)))
		if c.Valid() {
			companies = append(companies, c)
		}
	})
	return companies, nil
}
