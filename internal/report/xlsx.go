package report

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/earnings-cli/internal/model"
)

const xlsxSheet = "Candidates"

type xlsxEmitter struct {
	path string
}

func (e *xlsxEmitter) Write(_ context.Context, candidates []model.Candidate) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(xlsxSheet)
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Refs.", "Symbol", "Company Name"} {
		header.AddCell().SetString(h)
	}
	for _, c := range candidates {
		row := sheet.AddRow()
		row.AddCell().SetInt(c.References)
		row.AddCell().SetString(c.Symbol)
		row.AddCell().SetString(c.Name)
	}

	if err := f.Save(e.path); err != nil {
		return eris.Wrapf(err, "report: save %s", e.path)
	}
	return nil
}
