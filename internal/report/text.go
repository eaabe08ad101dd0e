package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

const tsvHeader = "Refs.\tSymbol \tCompany Name\n"

// writeTSV renders the fixed-width tab layout: references right-aligned in
// five columns, symbol left-aligned in seven.
func writeTSV(w io.Writer, candidates []model.Candidate) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(tsvHeader); err != nil {
		return eris.Wrap(err, "report: write tsv header")
	}
	for _, c := range candidates {
		if _, err := fmt.Fprintf(bw, "%5d\t%-7s\t%s\n", c.References, c.Symbol, c.Name); err != nil {
			return eris.Wrap(err, "report: write tsv row")
		}
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "report: flush tsv")
	}
	return nil
}

func writeCSV(w io.Writer, candidates []model.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"refs", "symbol", "name"}); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, c := range candidates {
		if err := cw.Write([]string{strconv.Itoa(c.References), c.Symbol, c.Name}); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

func writeJSON(w io.Writer, candidates []model.Candidate) error {
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(candidates); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}
