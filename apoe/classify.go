package apoe

import (
	"errors"
	"fmt"
	"strings"
)

// Sample is one row of the genotype input. Snp1 and Snp2 hold the raw
// compound genotype tokens for rs429358 and rs7412.
type Sample struct {
	FamilyID     string
	IndividualID string
	Phenotype    string
	Snp1         string
	Snp2         string
}

// SampleKey identifies a sample. Individual IDs are only unique within a family.
type SampleKey struct {
	FamilyID     string
	IndividualID string
}

func (s Sample) Key() SampleKey {
	return SampleKey{FamilyID: s.FamilyID, IndividualID: s.IndividualID}
}

type Outcome byte

const (
	Resolved Outcome = iota
	MissingData
	InvalidCombination
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "Resolved"
	case MissingData:
		return "MissingData"
	case InvalidCombination:
		return "InvalidCombination"
	default:
		return "Unknown"
	}
}

// Call is the classification of a single sample. Reason is nil for
// resolved samples and explains the label otherwise.
type Call struct {
	Sample
	Outcome   Outcome
	Diplotype Diplotype
	Reason    error
}

var (
	ErrMissingGenotype     = errors.New("genotype missing")
	ErrImpossibleHaplotype = errors.New("genotype requires a C-T haplotype at rs429358-rs7412")
	// ErrInvalidCall is the reason given to Invalid calls read back from a
	// table, where the original cause is no longer known.
	ErrInvalidCall = errors.New("genotype recorded as Invalid")
)

type InvalidAlleleError struct {
	Snp    string
	Token  string
	Allele byte
}

func (e *InvalidAlleleError) Error() string {
	return fmt.Sprintf("unexpected allele '%c' in %s genotype '%s', expected C or T", e.Allele, e.Snp, e.Token)
}

// DefaultMissing are the sentinels PLINK and common array exports use for a
// failed call.
var DefaultMissing = []string{"00", "NN", "--", ".."}

// Classifier maps samples to diplotypes. The zero value treats only
// malformed or partially missing tokens as missing.
type Classifier struct {
	Missing []string
}

func DefaultClassifier() Classifier {
	return Classifier{Missing: DefaultMissing}
}

// Classify is a pure function of the sample; it never fails, every problem
// is reported through the returned Call.
func (c Classifier) Classify(s Sample) Call {
	ans := Call{Sample: s}
	var snp1C, snp2T int
	var err1, err2 error

	snp1C, err1 = c.count(s.Snp1, Rs429358, 'C')
	snp2T, err2 = c.count(s.Snp2, Rs7412, 'T')

	switch {
	case errors.Is(err1, ErrMissingGenotype) || errors.Is(err2, ErrMissingGenotype):
		ans.Outcome = MissingData
		ans.Diplotype = Undetermined
		ans.Reason = firstErr(err1, err2, ErrMissingGenotype)
	case err1 != nil || err2 != nil:
		ans.Outcome = InvalidCombination
		ans.Diplotype = Invalid
		ans.Reason = firstErr(err1, err2, nil)
	default:
		ans.Diplotype = lookupDiplotype(snp1C, snp2T)
		if ans.Diplotype == Invalid {
			ans.Outcome = InvalidCombination
			ans.Reason = ErrImpossibleHaplotype
		}
	}
	return ans
}

// ClassifyAll keeps input order and length.
func (c Classifier) ClassifyAll(samples []Sample) []Call {
	ans := make([]Call, len(samples))
	for i := range samples {
		ans[i] = c.Classify(samples[i])
	}
	return ans
}

// count returns how many copies of the derived allele a token carries.
// A token that is a sentinel, has the wrong length, or has any missing
// allele character is treated as entirely missing.
func (c Classifier) count(token, snp string, derived byte) (int, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if c.isSentinel(token) || len(token) != 2 {
		return 0, fmt.Errorf("%s '%s': %w", snp, token, ErrMissingGenotype)
	}
	if isMissingAllele(token[0]) || isMissingAllele(token[1]) {
		return 0, fmt.Errorf("%s '%s' partially called: %w", snp, token, ErrMissingGenotype)
	}
	var ans int
	for i := 0; i < 2; i++ {
		switch token[i] {
		case derived:
			ans++
		case 'C', 'T':
		default:
			return 0, &InvalidAlleleError{Snp: snp, Token: token, Allele: token[i]}
		}
	}
	return ans, nil
}

func (c Classifier) isSentinel(token string) bool {
	for _, m := range c.Missing {
		if strings.EqualFold(token, m) {
			return true
		}
	}
	return false
}

func isMissingAllele(b byte) bool {
	switch b {
	case '0', 'N', '-', '.':
		return true
	}
	return false
}

// firstErr prefers an error wrapping target, then any non-nil error.
func firstErr(a, b, target error) error {
	if target != nil {
		if errors.Is(a, target) {
			return a
		}
		if errors.Is(b, target) {
			return b
		}
	}
	if a != nil {
		return a
	}
	return b
}
