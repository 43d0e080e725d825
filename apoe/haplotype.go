package apoe

const (
	Rs429358 string = "rs429358" // codon 112, T>C
	Rs7412   string = "rs7412"   // codon 158, C>T
)

type Haplotype byte

const (
	E2 Haplotype = iota
	E3
	E4
)

func (h Haplotype) String() string {
	switch h {
	case E2:
		return "e2"
	case E3:
		return "e3"
	case E4:
		return "e4"
	default:
		return "e?"
	}
}

// HaplotypeDef is the allele carried at each SNP on one chromosome copy.
type HaplotypeDef struct {
	Haplotype Haplotype
	Snp1      byte
	Snp2      byte
}

// Haplotypes lists every haplotype that occurs. C at rs429358 together with
// T at rs7412 on the same copy is never observed and has no entry.
var Haplotypes = []HaplotypeDef{
	{Haplotype: E2, Snp1: 'T', Snp2: 'T'},
	{Haplotype: E3, Snp1: 'T', Snp2: 'C'},
	{Haplotype: E4, Snp1: 'C', Snp2: 'C'},
}

type Diplotype string

const (
	E2E2         Diplotype = "e2/e2"
	E2E3         Diplotype = "e2/e3"
	E2E4         Diplotype = "e2/e4"
	E3E3         Diplotype = "e3/e3"
	E3E4         Diplotype = "e3/e4"
	E4E4         Diplotype = "e4/e4"
	Undetermined Diplotype = "Undetermined"
	Invalid      Diplotype = "Invalid"
)

// AllDiplotypes is the fixed reporting order used by every summary.
var AllDiplotypes = []Diplotype{E2E2, E2E3, E2E4, E3E3, E3E4, E4E4, Undetermined, Invalid}

// IsCanonical reports whether d is one of the six real diplotypes.
func (d Diplotype) IsCanonical() bool {
	switch d {
	case E2E2, E2E3, E2E4, E3E3, E3E4, E4E4:
		return true
	}
	return false
}

// Carries reports whether either copy of d is haplotype h.
func (d Diplotype) Carries(h Haplotype) bool {
	if !d.IsCanonical() {
		return false
	}
	a, b := d.Haplotypes()
	return a == h || b == h
}

// Haplotypes splits a canonical diplotype into its two copies, lower first.
func (d Diplotype) Haplotypes() (Haplotype, Haplotype) {
	switch d {
	case E2E2:
		return E2, E2
	case E2E3:
		return E2, E3
	case E2E4:
		return E2, E4
	case E3E3:
		return E3, E3
	case E3E4:
		return E3, E4
	case E4E4:
		return E4, E4
	default:
		panic("apoe: Haplotypes called on non-canonical diplotype " + string(d))
	}
}

// DiplotypeOf joins two haplotypes into a diplotype label in canonical order.
func DiplotypeOf(a, b Haplotype) Diplotype {
	if b < a {
		a, b = b, a
	}
	return Diplotype(a.String() + "/" + b.String())
}

// ParseDiplotype is the inverse of the label strings written to output tables.
func ParseDiplotype(s string) (Diplotype, bool) {
	for _, d := range AllDiplotypes {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// diplotypeTable is indexed by [count of C at rs429358][count of T at rs7412].
// Each C at rs429358 sits on an e4 copy and each T at rs7412 on an e2 copy,
// so a cell is only reachable when both counts fit on two copies without
// pairing C with T. The double heterozygote therefore phases as e2 + e4.
var diplotypeTable = [3][3]Diplotype{
	//  T=0    T=1      T=2
	{E3E3, E2E3, E2E2},       // C=0
	{E3E4, E2E4, Invalid},    // C=1
	{E4E4, Invalid, Invalid}, // C=2
}

func lookupDiplotype(snp1C, snp2T int) Diplotype {
	return diplotypeTable[snp1C][snp2T]
}

const UnknownRisk string = "Unknown"

var riskProfiles = map[Diplotype]string{
	E2E2: "Reduced risk",
	E2E3: "Reduced risk",
	E3E3: "Population baseline",
	E2E4: "Uncertain / mixed",
	E3E4: "Increased risk",
	E4E4: "Substantially increased risk",
}

// RiskProfile is the Alzheimer's risk category reported alongside a call.
// Undetermined and Invalid have no profile and report UnknownRisk.
func (d Diplotype) RiskProfile() string {
	if ans, ok := riskProfiles[d]; ok {
		return ans
	}
	return UnknownRisk
}
