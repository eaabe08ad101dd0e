package source

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

const investingURL = "https://www.investing.com/earnings-calendar/Service/getCalendarFilteredData"

// investingUS is the Investing.com country filter for United States listings.
const investingUS = "5"

// InvestingAdapter reads the filtered-data service behind the Investing.com
// earnings calendar, which answers with pre-rendered table rows.
type InvestingAdapter struct {
	client  *Client
	baseURL string
}

// NewInvesting creates the Investing.com adapter. An empty baseURL selects
// the public service.
func NewInvesting(client *Client, baseURL string) *InvestingAdapter {
	if baseURL == "" {
		baseURL = investingURL
	}
	return &InvestingAdapter{client: client, baseURL: baseURL}
}

func (i *InvestingAdapter) Name() string { return Investing }

type investingResponse struct {
	Data    string `json:"data"`
	RowsNum int    `json:"rows_num"`
}

// Parse requests the calendar rows for date.
func (i *InvestingAdapter) Parse(ctx context.Context, date time.Time) ([]model.Company, error) {
	day := date.Format(time.DateOnly)
	form := url.Values{}
	form.Add("country[]", investingUS)
	form.Set("dateFrom", day)
	form.Set("dateTo", day)
	form.Set("currentTab", "custom")
	form.Set("limit_from", "0")

	body, err := i.client.PostForm(ctx, i.baseURL, form, http.Header{
		"X-Requested-With": {"XMLHttpRequest"},
		"Accept":           {"application/json"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "investing: fetch calendar")
	}

	var resp investingResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, eris.Wrap(err, "investing: decode calendar")
	}

	doc, err := parseFragment("<table><tbody>" + resp.Data + "</tbody></table>")
	if err != nil {
		return nil, eris.Wrap(err, "investing: parse rows")
	}

	var companies []model.Company
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		c := model.NewCompany(cleanText(row.Find("a.bold.middle")), cleanText(row.Find("span.earnCalCompanyName")))
		if c.Valid() {
			companies = append(companies, c)
		}
	})
	return companies, nil
}
