package apoe

import "strings"

type PhenotypeCategory byte

const (
	Case PhenotypeCategory = iota
	Control
	MissingPhenotype
	OtherPhenotype
)

// AllPhenotypeCategories is the fixed column order of summary strata.
var AllPhenotypeCategories = []PhenotypeCategory{Case, Control, MissingPhenotype, OtherPhenotype}

// Label is the column prefix used in the summary table.
func (p PhenotypeCategory) Label() string {
	switch p {
	case Case:
		return "CASES"
	case Control:
		return "CONTROLS"
	case MissingPhenotype:
		return "MISSING_PHENO"
	default:
		return "OTHER_PHENO"
	}
}

// CategorizePhenotype follows PLINK affection coding: 1 control, 2 case,
// -9/0 missing.
func CategorizePhenotype(pheno string) PhenotypeCategory {
	switch strings.ToUpper(strings.TrimSpace(pheno)) {
	case "2":
		return Case
	case "1":
		return Control
	case "-9", "0", "NA", "":
		return MissingPhenotype
	default:
		return OtherPhenotype
	}
}

// Stratum holds diplotype counts over one group of samples.
type Stratum struct {
	Total  int
	Counts map[Diplotype]int
}

func newStratum() *Stratum {
	return &Stratum{Counts: make(map[Diplotype]int, len(AllDiplotypes))}
}

// Proportion uses every sample in the stratum as the denominator,
// undetermined and invalid calls included.
func (s *Stratum) Proportion(d Diplotype) float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return float64(s.Counts[d]) / float64(s.Total)
}

func (s *Stratum) add(d Diplotype) {
	s.Total++
	s.Counts[d]++
}

type Summary struct {
	Overall *Stratum
	Strata  map[PhenotypeCategory]*Stratum
}

// Categories returns the phenotype categories with at least one sample.
func (s Summary) Categories() []PhenotypeCategory {
	var ans []PhenotypeCategory
	for _, p := range AllPhenotypeCategories {
		if st, ok := s.Strata[p]; ok && st.Total > 0 {
			ans = append(ans, p)
		}
	}
	return ans
}

// Summarize tabulates calls in a single pass. It is always rebuilt from the
// full set of calls; merged batches must be summarized from their merged calls.
func Summarize(calls []Call) Summary {
	ans := Summary{
		Overall: newStratum(),
		Strata:  make(map[PhenotypeCategory]*Stratum),
	}
	var cat PhenotypeCategory
	var st *Stratum
	var ok bool
	for i := range calls {
		ans.Overall.add(calls[i].Diplotype)
		cat = CategorizePhenotype(calls[i].Phenotype)
		if st, ok = ans.Strata[cat]; !ok {
			st = newStratum()
			ans.Strata[cat] = st
		}
		st.add(calls[i].Diplotype)
	}
	return ans
}

type CarrierCounts struct {
	E4Carriers int
	E2Carriers int
	E3E3       int
}

func (s Summary) CarrierCounts() CarrierCounts {
	var ans CarrierCounts
	for d, n := range s.Overall.Counts {
		if d.Carries(E4) {
			ans.E4Carriers += n
		}
		if d.Carries(E2) {
			ans.E2Carriers += n
		}
		if d == E3E3 {
			ans.E3E3 += n
		}
	}
	return ans
}
