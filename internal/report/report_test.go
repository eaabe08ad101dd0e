package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/earnings-cli/internal/model"
)

func sample() []model.Candidate {
	return []model.Candidate{
		{Company: model.Company{Symbol: "AAPL", Name: "Apple Inc."}, References: 4},
		{Company: model.Company{Symbol: "BRK.B", Name: "Berkshire, Hathaway"}, References: 2},
		{Company: model.Company{Symbol: "ZZZ"}, References: 2},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", TSV, false},
		{"tsv", TSV, false},
		{"CSV", CSV, false},
		{"json", JSON, false},
		{"xlsx", XLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "company_candidates.txt", DefaultPath(TSV))
	assert.Equal(t, "company_candidates.csv", DefaultPath(CSV))
	assert.Equal(t, "company_candidates.xlsx", DefaultPath(XLSX))
}

func TestEncode_TSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, TSV, sample()))

	want := "Refs.\tSymbol \tCompany Name\n" +
		"    4\tAAPL   \tApple Inc.\n" +
		"    2\tBRK.B  \tBerkshire, Hathaway\n" +
		"    2\tZZZ    \t\n"
	assert.Equal(t, want, buf.String())
}

func TestEncode_TSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, TSV, nil))
	assert.Equal(t, "Refs.\tSymbol \tCompany Name\n", buf.String())
}

func TestEncode_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, CSV, sample()))

	want := "refs,symbol,name\n" +
		"4,AAPL,Apple Inc.\n" +
		"2,BRK.B,\"Berkshire, Hathaway\"\n" +
		"2,ZZZ,\n"
	assert.Equal(t, want, buf.String())
}

func TestEncode_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, JSON, sample()[:1]))
	assert.JSONEq(t, `[{"symbol":"AAPL","name":"Apple Inc.","references":4}]`, buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, JSON, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestEncode_XLSXRejected(t *testing.T) {
	assert.Error(t, Encode(&bytes.Buffer{}, XLSX, sample()))
}

func TestNew_WritesFile(t *testing.T) {
	for _, f := range []Format{TSV, CSV, JSON} {
		t.Run(string(f), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultPath(f))
			em, err := New(f, path)
			require.NoError(t, err)
			require.NoError(t, em.Write(context.Background(), sample()))

			data, err := os.ReadFile(path)
			require.NoError(t, err)

			var want bytes.Buffer
			require.NoError(t, Encode(&want, f, sample()))
			assert.Equal(t, want.String(), string(data))
		})
	}
}

func TestNew_Stdout(t *testing.T) {
	em, err := New(JSON, Stdout)
	require.NoError(t, err)

	var buf bytes.Buffer
	em.(*fileEmitter).stdout = &buf
	require.NoError(t, em.Write(context.Background(), sample()))

	var got []model.Candidate
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sample(), got)
}

func TestNew_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	em, err := New(XLSX, path)
	require.NoError(t, err)
	require.NoError(t, em.Write(context.Background(), sample()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[xlsxSheet]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "Refs.", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "4", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "BRK.B", sheet.Rows[2].Cells[1].String())
}

func TestNew_XLSXStdoutRejected(t *testing.T) {
	_, err := New(XLSX, Stdout)
	assert.Error(t, err)
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(Format("pdf"), "")
	assert.Error(t, err)
}

func TestWrite_Failure(t *testing.T) {
	em, err := New(TSV, filepath.Join(t.TempDir(), "missing", "dir", "out.txt"))
	require.NoError(t, err)

	err = em.Write(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: create")
}

func TestWrite_CancelledRunStillWritesReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	partial := []model.Candidate{{Company: model.Company{Symbol: "AAA", Name: "Apple"}, References: 2}}
	for _, format := range []Format{TSV, XLSX} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultPath(format))
			em, err := New(format, path)
			require.NoError(t, err)

			require.NoError(t, em.Write(ctx, partial))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}
