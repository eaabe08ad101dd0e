package correlate

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/earnings-cli/internal/model"
)

func co(symbol, name string) model.Company {
	return model.Company{Symbol: symbol, Name: name}
}

func cand(symbol, name string, refs int) model.Candidate {
	return model.Candidate{Company: co(symbol, name), References: refs}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]model.Company{
		co("AAA", ""),
		co("BBB", "Boeing"),
		co("AAA", "Apple"),
		co("AAA", "Apple2"),
		co("", "No Symbol"),
	})
	assert.Equal(t, []model.Company{co("AAA", "Apple"), co("BBB", "Boeing")}, got)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}

func TestCorrelate_NameFromFirstNonEmpty(t *testing.T) {
	lists := [][]model.Company{
		{co("AAA", "Apple")},
		{co("AAA", "")},
		{co("BBB", "Boeing")},
	}

	got := Correlate(lists, 2)
	assert.Equal(t, []model.Candidate{cand("AAA", "Apple", 2)}, got)
}

func TestCorrelate_DuplicateInSourceCountsOnce(t *testing.T) {
	lists := [][]model.Company{
		{co("AAA", "Apple"), co("AAA", "Apple2")},
	}

	got := Correlate(lists, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].References)
	assert.Equal(t, "Apple", got[0].Name)
}

func TestCorrelate_NameTieBreakBySourceOrder(t *testing.T) {
	lists := [][]model.Company{
		{co("AAA", "")},
		{co("AAA", "Apple Inc")},
		{co("AAA", "Apple")},
	}

	got := Correlate(lists, 1)
	assert.Equal(t, []model.Candidate{cand("AAA", "Apple Inc", 3)}, got)
}

func TestCorrelate_NoNameAnywhere(t *testing.T) {
	got := Correlate([][]model.Company{{co("AAA", "")}, {co("AAA", "")}}, 2)
	assert.Equal(t, []model.Candidate{cand("AAA", "", 2)}, got)
}

func TestCorrelate_Ordering(t *testing.T) {
	lists := [][]model.Company{
		{co("ZZZ", "Z"), co("MMM", "M"), co("AAA", "A")},
		{co("MMM", "M"), co("AAA", "A")},
		{co("MMM", "M")},
	}

	got := Correlate(lists, 0)
	assert.Equal(t, []model.Candidate{
		cand("MMM", "M", 3),
		cand("AAA", "A", 2),
		cand("ZZZ", "Z", 1),
	}, got)
}

func TestCorrelate_EmptyInputs(t *testing.T) {
	for _, minRefs := range []int{0, 1} {
		t.Run(fmt.Sprintf("min_%d", minRefs), func(t *testing.T) {
			got := Correlate([][]model.Company{{}, nil, {}}, minRefs)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
	assert.Empty(t, Correlate(nil, 0))
}

func TestCorrelate_ThresholdAboveSources(t *testing.T) {
	lists := [][]model.Company{{co("AAA", "A")}, {co("AAA", "A")}}
	assert.Empty(t, Correlate(lists, 3))
}

func TestCorrelate_InputNotMutated(t *testing.T) {
	lists := [][]model.Company{{co("AAA", ""), co("AAA", "Apple")}}
	_ = Correlate(lists, 1)
	assert.Equal(t, co("AAA", ""), lists[0][0])
}

// randomLists builds n per-source lists drawn from a small symbol pool so
// that overlaps and in-source duplicates are common.
func randomLists(r *rand.Rand, n int) [][]model.Company {
	pool := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}
	lists := make([][]model.Company, n)
	for i := range lists {
		for j := r.IntN(8); j > 0; j-- {
			sym := pool[r.IntN(len(pool))]
			name := ""
			if r.IntN(2) == 0 {
				name = fmt.Sprintf("%s-%d", sym, i)
			}
			lists[i] = append(lists[i], co(sym, name))
		}
	}
	return lists
}

func distinctSourcesWith(lists [][]model.Company, symbol string) int {
	n := 0
	for _, l := range lists {
		for _, c := range l {
			if c.Symbol == symbol {
				n++
				break
			}
		}
	}
	return n
}

func TestCorrelate_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 200; trial++ {
		n := 1 + r.IntN(6)
		lists := randomLists(r, n)

		nonEmpty := 0
		for _, l := range lists {
			if len(l) > 0 {
				nonEmpty++
			}
		}

		prev := -1
		for minRefs := 0; minRefs <= n+1; minRefs++ {
			got := Correlate(lists, minRefs)

			for _, c := range got {
				assert.LessOrEqual(t, c.References, n)
				assert.LessOrEqual(t, c.References, nonEmpty)
				assert.GreaterOrEqual(t, c.References, minRefs)
				assert.Equal(t, distinctSourcesWith(lists, c.Symbol), c.References, "symbol %s", c.Symbol)
			}

			assert.Equal(t, got, Correlate(lists, minRefs), "idempotent")

			if prev >= 0 {
				assert.LessOrEqual(t, len(got), prev, "monotone in minimum references")
			}
			prev = len(got)
		}
	}
}

func TestCapacityHint(t *testing.T) {
	tests := []struct {
		total, sources, want int
	}{
		{0, 0, 0},
		{10, 0, 0},
		{0, 5, 0},
		{10, 5, 2},
		{11, 5, 2},
		{3, 5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CapacityHint(tt.total, tt.sources), "%d/%d", tt.total, tt.sources)
	}
}
