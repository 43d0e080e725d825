// Package feasibility estimates how many genotyped participants meet the
// APOE criteria of a trial, e.g. e3/e4 and e4/e4 for Alzheimer's screening.
package feasibility

import (
	"fmt"
	"github.com/dasnellings/PGC_APOE/apoe"
	"gonum.org/v1/gonum/stat/distuv"
	"math"
	"sort"
	"strings"
)

var DefaultTargets = []apoe.Diplotype{apoe.E3E4, apoe.E4E4}

type Criteria struct {
	Study   string
	Targets []apoe.Diplotype // empty means every label that is not excluded
	Exclude []apoe.Diplotype
	// ExcludeUndetermined drops Undetermined and Invalid calls from eligibility.
	ExcludeUndetermined bool
	Confidence          float64
}

func DefaultCriteria() Criteria {
	return Criteria{
		Study:               "Unnamed Study",
		Targets:             DefaultTargets,
		ExcludeUndetermined: true,
		Confidence:          0.95,
	}
}

type Report struct {
	Study      string
	Total      int
	Eligible   int
	Excluded   int
	Targets    []apoe.Diplotype
	Exclusions []apoe.Diplotype
	Breakdown  map[apoe.Diplotype]int
	Confidence float64
	Lower      float64
	Upper      float64
}

func (r Report) Rate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Eligible) / float64(r.Total)
}

func Estimate(calls []apoe.Call, c Criteria) (Report, error) {
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return Report{}, fmt.Errorf("confidence must be between 0 and 1, got %g", c.Confidence)
	}
	exclude := make(map[apoe.Diplotype]bool)
	for _, d := range c.Exclude {
		exclude[d] = true
	}
	if c.ExcludeUndetermined {
		exclude[apoe.Undetermined] = true
		exclude[apoe.Invalid] = true
	}
	targets := make(map[apoe.Diplotype]bool)
	for _, d := range c.Targets {
		targets[d] = true
	}

	ans := Report{
		Study:      c.Study,
		Total:      len(calls),
		Targets:    c.Targets,
		Breakdown:  make(map[apoe.Diplotype]int),
		Confidence: c.Confidence,
	}
	for _, d := range apoe.AllDiplotypes {
		if exclude[d] {
			ans.Exclusions = append(ans.Exclusions, d)
		}
	}
	for i := range calls {
		d := calls[i].Diplotype
		ans.Breakdown[d]++
		switch {
		case exclude[d]:
			ans.Excluded++
		case len(targets) == 0 || targets[d]:
			ans.Eligible++
		}
	}
	ans.Lower, ans.Upper = wilson(ans.Eligible, ans.Total, c.Confidence)
	return ans, nil
}

// wilson returns the Wilson score interval for k successes out of n.
func wilson(k, n int, confidence float64) (float64, float64) {
	if n == 0 {
		return 0, 0
	}
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	nf := float64(n)
	p := float64(k) / nf
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

func joinLabels(ds []apoe.Diplotype, none string) string {
	if len(ds) == 0 {
		return none
	}
	s := make([]string, len(ds))
	for i := range ds {
		s[i] = string(ds[i])
	}
	return strings.Join(s, ", ")
}

// Format renders the report as plain text for pasting into an email or ticket.
func (r Report) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "APOE Feasibility Report: %s\n", r.Study)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Total genotyped samples  : %d\n", r.Total)
	fmt.Fprintf(&sb, "Eligible participants    : %d\n", r.Eligible)
	fmt.Fprintf(&sb, "Eligibility rate         : %.1f%% (%g%% CI %.1f%%-%.1f%%)\n",
		100*r.Rate(), 100*r.Confidence, 100*r.Lower, 100*r.Upper)
	fmt.Fprintf(&sb, "Excluded participants    : %d\n\n", r.Excluded)
	fmt.Fprintf(&sb, "Target genotypes         : %s\n", joinLabels(r.Targets, "All"))
	fmt.Fprintf(&sb, "Exclusion criteria       : %s\n\n", joinLabels(r.Exclusions, "None"))
	sb.WriteString("Genotype breakdown:\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	labels := make([]apoe.Diplotype, 0, len(r.Breakdown))
	for _, d := range apoe.AllDiplotypes {
		if r.Breakdown[d] > 0 {
			labels = append(labels, d)
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return r.Breakdown[labels[i]] > r.Breakdown[labels[j]]
	})
	var pct float64
	for _, d := range labels {
		pct = 100 * float64(r.Breakdown[d]) / float64(r.Total)
		fmt.Fprintf(&sb, "  %-15s  %8d  (%5.1f%%)\n", d, r.Breakdown[d], pct)
	}
	return sb.String()
}
