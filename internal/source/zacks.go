package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

const zacksURL = "https://www.zacks.com/includes/classes/z2_class_calendarfunctions_data.php"

// ZacksAdapter reads the data feed behind the Zacks earnings calendar. Each
// row is an array of HTML cells: ticker first, company name second.
type ZacksAdapter struct {
	client  *Client
	baseURL string
}

// NewZacks creates the Zacks adapter. An empty baseURL selects the public feed.
func NewZacks(client *Client, baseURL string) *ZacksAdapter {
	if baseURL == "" {
		baseURL = zacksURL
	}
	return &ZacksAdapter{client: client, baseURL: baseURL}
}

func (z *ZacksAdapter) Name() string { return Zacks }

type zacksResponse struct {
	Data [][]any `json:"data"`
}

// Parse requests the earnings events of date.
func (z *ZacksAdapter) Parse(ctx context.Context, date time.Time) ([]model.Company, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	q := url.Values{}
	q.Set("calltype", "eventscal")
	q.Set("type", "1")
	q.Set("date", strconv.FormatInt(day.Unix(), 10))

	body, err := z.client.Get(ctx, z.baseURL+"?"+q.Encode(), http.Header{
		"Accept":           {"application/json, text/javascript, */*"},
		"X-Requested-With": {"XMLHttpRequest"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "zacks: fetch events")
	}

	var resp zacksResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, eris.Wrap(err, "zacks: decode events")
	}

	companies := make([]model.Company, 0, len(resp.Data))
	for _, row := range resp.Data {
		if len(row) < 2 {
			continue
		}
		symCell, err := parseFragment(columnString(row, 0))
		if err != nil {
			return nil, eris.Wrap(err, "zacks: symbol cell")
		}
		nameCell, err := parseFragment(columnString(row, 1))
		if err != nil {
			return nil, eris.Wrap(err, "zacks: name cell")
		}

		symbol := ownText(symCell.Find("span"))
		if symbol == "" {
			symbol = cleanText(symCell.Find("body"))
		}
		c := model.NewCompany(symbol, cleanText(nameCell.Find("body")))
		if c.Valid() {
			companies = append(companies, c)
		}
	}
	return companies, nil
}
