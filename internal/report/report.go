// Package report renders ranked candidates to a file or stdout.
package report

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Format names an output encoding.
type Format string

const (
	TSV  Format = "tsv"
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// Stdout as an output path writes to standard output.
const Stdout = "-"

// Formats lists the supported formats.
var Formats = []Format{TSV, CSV, JSON, XLSX}

// ParseFormat validates s. An empty string selects TSV.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return TSV, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Errorf("report: unknown format %q (valid: tsv, csv, json, xlsx)", s)
}

// DefaultPath returns the output file used when none is configured.
func DefaultPath(f Format) string {
	if f == TSV {
		return "company_candidates.txt"
	}
	return "company_candidates." + string(f)
}

// Emitter writes the final candidate list once per run. Write does not stop
// on a cancelled ctx: an interrupted run still gets its partial report.
type Emitter interface {
	Write(ctx context.Context, candidates []model.Candidate) error
}

// New returns an Emitter writing format to path. An empty path selects
// DefaultPath; Stdout is accepted for the text formats.
func New(format Format, path string) (Emitter, error) {
	if path == "" {
		path = DefaultPath(format)
	}
	switch format {
	case TSV, CSV, JSON:
		return &fileEmitter{format: format, path: path, stdout: os.Stdout}, nil
	case XLSX:
		if path == Stdout {
			return nil, eris.New("report: xlsx cannot be written to stdout")
		}
		return &xlsxEmitter{path: path}, nil
	default:
		return nil, eris.Errorf("report: unknown format %q", format)
	}
}

// Encode writes candidates to w in a text format.
func Encode(w io.Writer, format Format, candidates []model.Candidate) error {
	switch format {
	case TSV:
		return writeTSV(w, candidates)
	case CSV:
		return writeCSV(w, candidates)
	case JSON:
		return writeJSON(w, candidates)
	default:
		return eris.Errorf("report: format %q is not a text format", format)
	}
}

type fileEmitter struct {
	format Format
	path   string
	stdout io.Writer
}

func (e *fileEmitter) Write(_ context.Context, candidates []model.Candidate) error {
	if e.path == Stdout {
		return Encode(e.stdout, e.format, candidates)
	}

	f, err := os.Create(e.path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", e.path)
	}
	if err := Encode(f, e.format, candidates); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "report: write %s", e.path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "report: close %s", e.path)
	}
	return nil
}
