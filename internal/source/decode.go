package source

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"
)

// decodeJSON unmarshals data into v. Calendar endpoints occasionally ship
// truncated or hand-escaped JSON, so a failed decode is retried once on the
// repaired document.
func decodeJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return eris.Wrapf(err, "decode json (repair failed: %v)", repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return eris.Wrap(err, "decode repaired json")
	}
	return nil
}

// parseFragment parses an HTML fragment such as a table cell or a run of
// <tr> rows.
func parseFragment(fragment string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, eris.Wrap(err, "parse html fragment")
	}
	return doc, nil
}

// ownText returns the text of sel's direct text children, ignoring nested
// elements. Symbol cells often carry a hidden tooltip span after the ticker.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return strings.TrimSpace(b.String())
}

// cleanText collapses the whitespace of sel's full text.
func cleanText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.First().Text()), " ")
}
