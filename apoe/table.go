package apoe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/carbocation/pfx"
	"github.com/vertgenlab/gonomics/fileio"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	colFamilyID     string = "FID"
	colIndividualID string = "IID"
	colPhenotype    string = "PHENO"
	colDiplotype    string = "APOE_GENOTYPE"
	colRiskProfile  string = "RISK_PROFILE"
	colE4Carrier    string = "E4_CARRIER"
	colE2Carrier    string = "E2_CARRIER"
)

// CallsHeader is the per-sample table header for the given SNP names.
func CallsHeader(snp1, snp2 string) []string {
	return []string{colFamilyID, colIndividualID, colPhenotype, snp1, snp2, colDiplotype}
}

// AnnotatedCallsHeader appends the risk profile and carrier flags to CallsHeader.
func AnnotatedCallsHeader(snp1, snp2 string) []string {
	return append(CallsHeader(snp1, snp2), colRiskProfile, colE4Carrier, colE2Carrier)
}

// WriteCalls writes one row per call, in call order.
func WriteCalls(w io.Writer, calls []Call, snp1, snp2 string) error {
	return writeCalls(w, calls, CallsHeader(snp1, snp2), false)
}

// WriteAnnotatedCalls is WriteCalls with three extra columns per row: the
// risk profile of the diplotype and whether it carries e4 and e2.
func WriteAnnotatedCalls(w io.Writer, calls []Call, snp1, snp2 string) error {
	return writeCalls(w, calls, AnnotatedCallsHeader(snp1, snp2), true)
}

func writeCalls(w io.Writer, calls []Call, header []string, annotate bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	var row []string
	for i := range calls {
		row = []string{
			calls[i].FamilyID,
			calls[i].IndividualID,
			calls[i].Phenotype,
			calls[i].Snp1,
			calls[i].Snp2,
			string(calls[i].Diplotype),
		}
		if annotate {
			row = append(row,
				calls[i].Diplotype.RiskProfile(),
				strconv.FormatBool(calls[i].Diplotype.Carries(E4)),
				strconv.FormatBool(calls[i].Diplotype.Carries(E2)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SummaryHeader lists the overall columns followed by one count/proportion
// pair per observed phenotype category.
func SummaryHeader(s Summary) []string {
	ans := []string{colDiplotype, "TOTAL_COUNT", "TOTAL_PROPORTION"}
	for _, p := range s.Categories() {
		ans = append(ans, p.Label()+"_COUNT", p.Label()+"_PROPORTION")
	}
	return ans
}

// WriteSummary always writes all eight diplotype rows, zero counts included.
func WriteSummary(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader(s)); err != nil {
		return err
	}
	cats := s.Categories()
	for _, d := range AllDiplotypes {
		row := []string{string(d), strconv.Itoa(s.Overall.Counts[d]), formatProportion(s.Overall.Proportion(d))}
		for _, p := range cats {
			row = append(row, strconv.Itoa(s.Strata[p].Counts[d]), formatProportion(s.Strata[p].Proportion(d)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatProportion(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

type TableError struct {
	File string
	Line int
	Msg  string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.File, e.Line, e.Msg)
}

// SchemaMismatchError is returned when per-sample tables being merged do not
// share a header.
type SchemaMismatchError struct {
	File     string
	Header   []string
	Expected []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s has header [%s], expected [%s]", e.File, strings.Join(e.Header, ","), strings.Join(e.Expected, ","))
}

// ReadCalls parses a per-sample table written by WriteCalls or
// WriteAnnotatedCalls and returns its header alongside the calls. Outcomes are
// recovered from the labels; columns after APOE_GENOTYPE are ignored.
func ReadCalls(filename string) ([]string, []Call, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, nil, pfx.Err(err)
	}
	file := fileio.EasyOpen(filename)
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &TableError{File: filename, Line: 1, Msg: "missing header"}
	}
	if err != nil {
		return nil, nil, &TableError{File: filename, Line: 1, Msg: err.Error()}
	}
	if len(header) < len(CallsHeader("", "")) || header[5] != colDiplotype {
		return nil, nil, &TableError{File: filename, Line: 1, Msg: fmt.Sprintf("expected column 6 to be %s in header [%s]", colDiplotype, strings.Join(header, ","))}
	}

	var ans []Call
	var record []string
	var line int = 1
	var d Diplotype
	var ok bool
	for {
		record, err = r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, &TableError{File: filename, Line: line, Msg: err.Error()}
		}
		if d, ok = ParseDiplotype(record[5]); !ok {
			return nil, nil, &TableError{File: filename, Line: line, Msg: fmt.Sprintf("unknown APOE genotype '%s'", record[5])}
		}
		ans = append(ans, callFromLabel(Sample{
			FamilyID:     record[0],
			IndividualID: record[1],
			Phenotype:    record[2],
			Snp1:         record[3],
			Snp2:         record[4],
		}, d))
	}
	return header, ans, nil
}

// ReadMergedCalls concatenates several per-sample tables that share a header.
func ReadMergedCalls(filenames ...string) ([]Call, error) {
	var ans []Call
	var expected []string
	for i, f := range filenames {
		header, calls, err := ReadCalls(f)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			expected = header
		} else if strings.Join(header, ",") != strings.Join(expected, ",") {
			return nil, &SchemaMismatchError{File: f, Header: header, Expected: expected}
		}
		ans = append(ans, calls...)
	}
	return ans, nil
}

func callFromLabel(s Sample, d Diplotype) Call {
	ans := Call{Sample: s, Diplotype: d}
	switch d {
	case Undetermined:
		ans.Outcome = MissingData
		ans.Reason = ErrMissingGenotype
	case Invalid:
		ans.Outcome = InvalidCombination
		ans.Reason = ErrInvalidCall
	default:
		ans.Outcome = Resolved
	}
	return ans
}
