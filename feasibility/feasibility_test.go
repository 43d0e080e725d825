package feasibility

import (
	"github.com/dasnellings/PGC_APOE/apoe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func calls(ds ...apoe.Diplotype) []apoe.Call {
	ans := make([]apoe.Call, len(ds))
	for i := range ds {
		ans[i] = apoe.Call{Diplotype: ds[i]}
	}
	return ans
}

func TestEstimate(t *testing.T) {
	cohort := calls(apoe.E3E3, apoe.E3E3, apoe.E3E4, apoe.E4E4, apoe.E2E4, apoe.E2E3, apoe.Undetermined, apoe.Invalid)

	t.Run("should count default targets and drop undetermined calls", func(t *testing.T) {
		r, err := Estimate(cohort, DefaultCriteria())
		require.NoError(t, err)

		assert.Equal(t, 8, r.Total)
		assert.Equal(t, 2, r.Eligible)
		assert.Equal(t, 2, r.Excluded)
		assert.Equal(t, 0.25, r.Rate())
		assert.Equal(t, []apoe.Diplotype{apoe.Undetermined, apoe.Invalid}, r.Exclusions)
		assert.Equal(t, 2, r.Breakdown[apoe.E3E3])
	})

	t.Run("should treat an empty target list as everything not excluded", func(t *testing.T) {
		c := DefaultCriteria()
		c.Targets = nil
		c.Exclude = []apoe.Diplotype{apoe.E2E3, apoe.E2E4}
		r, err := Estimate(cohort, c)
		require.NoError(t, err)

		assert.Equal(t, 4, r.Eligible)
		assert.Equal(t, 4, r.Excluded)
	})

	t.Run("should let excluded labels win over targets", func(t *testing.T) {
		c := DefaultCriteria()
		c.Exclude = []apoe.Diplotype{apoe.E4E4}
		r, err := Estimate(cohort, c)
		require.NoError(t, err)
		assert.Equal(t, 1, r.Eligible)
	})

	t.Run("should bracket the rate with a Wilson interval", func(t *testing.T) {
		r, err := Estimate(cohort, DefaultCriteria())
		require.NoError(t, err)
		assert.Less(t, r.Lower, r.Rate())
		assert.Greater(t, r.Upper, r.Rate())
		assert.GreaterOrEqual(t, r.Lower, 0.0)
		assert.LessOrEqual(t, r.Upper, 1.0)
	})

	t.Run("should reject a confidence outside (0,1)", func(t *testing.T) {
		c := DefaultCriteria()
		c.Confidence = 1.5
		_, err := Estimate(cohort, c)
		assert.Error(t, err)
	})

	t.Run("should handle an empty cohort", func(t *testing.T) {
		r, err := Estimate(nil, DefaultCriteria())
		require.NoError(t, err)
		assert.Zero(t, r.Rate())
		assert.Zero(t, r.Upper)
	})
}

func TestWilson(t *testing.T) {
	// 50 of 100 at 95%: 0.4038-0.5962
	lo, hi := wilson(50, 100, 0.95)
	assert.InDelta(t, 0.4038, lo, 1e-4)
	assert.InDelta(t, 0.5962, hi, 1e-4)

	lo, hi = wilson(0, 10, 0.95)
	assert.InDelta(t, 0.0, lo, 1e-12)
	assert.InDelta(t, 0.2775, hi, 1e-4)
}

func TestFormat(t *testing.T) {
	c := DefaultCriteria()
	c.Study = "AD Trial"
	r, err := Estimate(calls(apoe.E3E3, apoe.E3E3, apoe.E3E4, apoe.E4E4), c)
	require.NoError(t, err)

	out := r.Format()
	assert.True(t, strings.HasPrefix(out, "APOE Feasibility Report: AD Trial\n"))
	assert.Contains(t, out, "Eligible participants    : 2\n")
	assert.Contains(t, out, "Target genotypes         : e3/e4, e4/e4\n")
	assert.Contains(t, out, "Exclusion criteria       : Undetermined, Invalid\n")

	// most frequent first, ties in reporting order
	e33 := strings.Index(out, "e3/e3")
	e34 := strings.Index(out, "  e3/e4")
	e44 := strings.Index(out, "  e4/e4")
	assert.Less(t, e33, e34)
	assert.Less(t, e34, e44)
}
