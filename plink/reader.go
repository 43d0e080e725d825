package plink

import (
	"encoding/csv"
	"fmt"
	"github.com/carbocation/pfx"
	"github.com/dasnellings/PGC_APOE/apoe"
	log "github.com/sirupsen/logrus"
	"github.com/vertgenlab/gonomics/fileio"
	"math"
	"os"
	"strconv"
	"strings"
)

// Format is the layout of the genotype file produced by the extraction step.
type Format string

const (
	// Ped is `plink --recode compound-genotypes`: FID IID PAT MAT SEX PHENO then one
	// two-letter token per SNP.
	Ped Format = "ped"
	// Raw is `plink --recode A`: a header row, then additive dosages of the counted allele.
	Raw Format = "raw"
	// Csv is a comma or tab delimited table whose header names the sample
	// column and one genotype column per SNP.
	Csv Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case Ped:
		return Ped, nil
	case Raw:
		return Raw, nil
	case Csv, "tsv":
		return Csv, nil
	default:
		return "", fmt.Errorf("unsupported input format '%s', expected ped, raw or csv", s)
	}
}

const leadingCols int = 6 // FID IID PAT MAT SEX PHENO

const missingToken string = "00"

const (
	DefaultSampleColumn string = "IID"
	csvFamilyColumn     string = "FID"
	missingPhenotype    string = "-9"
)

type Options struct {
	Format       Format
	Columns      Columns // Ped only
	Snp1         string  // Raw and Csv, defaults to rs429358
	Snp2         string  // Raw and Csv, defaults to rs7412
	SampleColumn string  // Csv only, defaults to IID
}

func DefaultOptions() Options {
	return Options{Format: Ped, Columns: DefaultColumns, Snp1: apoe.Rs429358, Snp2: apoe.Rs7412, SampleColumn: DefaultSampleColumn}
}

type rawColumn struct {
	idx     int
	counted byte
}

// csvColumns holds header positions; optional columns are -1 when absent.
type csvColumns struct {
	fid   int
	iid   int
	pheno int
	snp1  int
	snp2  int
}

// Reader streams samples from one genotype file. It is single use; call
// Open again to rescan the file from the top.
type Reader struct {
	filename    string
	opts        Options
	file        *fileio.EasyReader
	line        int
	splitFunc   func(string) ([]string, error)
	processFunc func([]string) (apoe.Sample, bool, error)
	headerWidth int
	rawSnp1     rawColumn
	rawSnp2     rawColumn
	csvCols     csvColumns
	delim       rune
	seen        map[apoe.SampleKey]int
	curr        apoe.Sample
	err         error
	done        bool
}

func Open(filename string, opts Options) (*Reader, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, pfx.Err(err)
	}
	if opts.Snp1 == "" {
		opts.Snp1 = apoe.Rs429358
	}
	if opts.Snp2 == "" {
		opts.Snp2 = apoe.Rs7412
	}
	if opts.SampleColumn == "" {
		opts.SampleColumn = DefaultSampleColumn
	}
	ans := &Reader{
		filename:  filename,
		opts:      opts,
		splitFunc: splitWhitespace,
		seen:      make(map[apoe.SampleKey]int),
	}
	switch opts.Format {
	case Ped, "":
		if opts.Columns.Snp1 < 0 || opts.Columns.Snp2 < 0 || opts.Columns.Snp1 == opts.Columns.Snp2 {
			return nil, fmt.Errorf("invalid genotype columns %+v", opts.Columns)
		}
		ans.processFunc = ans.processPedLine
	case Raw:
		ans.processFunc = ans.processRawHeader
	case Csv:
		ans.splitFunc = ans.splitDelimited
		ans.processFunc = ans.processCsvHeader
	default:
		return nil, fmt.Errorf("unsupported input format '%s'", opts.Format)
	}
	ans.file = fileio.EasyOpen(filename)
	return ans, nil
}

// Next advances to the next sample row. It returns false at the end of the
// file or on the first structural error, which is then reported by Err.
// Blank lines are skipped; every other line is a header or a sample.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	var line string
	var eof, isSample bool
	var fields []string
	for {
		line, eof = fileio.EasyNextLine(r.file)
		if eof {
			r.done = true
			return false
		}
		r.line++
		if strings.TrimSpace(line) == "" {
			continue
		}
		if fields, r.err = r.splitFunc(line); r.err != nil {
			r.done = true
			return false
		}
		r.curr, isSample, r.err = r.processFunc(fields)
		if r.err != nil {
			r.done = true
			return false
		}
		if !isSample {
			continue
		}
		r.checkDuplicate(r.curr)
		return true
	}
}

func (r *Reader) Sample() apoe.Sample {
	return r.curr
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Close() error {
	return r.file.Close()
}

func (r *Reader) checkDuplicate(s apoe.Sample) {
	if prev, ok := r.seen[s.Key()]; ok {
		log.WithFields(log.Fields{
			"file":  r.filename,
			"line":  r.line,
			"first": prev,
			"fid":   s.FamilyID,
			"iid":   s.IndividualID,
		}).Warn("duplicate sample")
		return
	}
	r.seen[s.Key()] = r.line
}

func (r *Reader) malformed(fields, want int) error {
	return &MalformedRowError{File: r.filename, Line: r.line, Fields: fields, Want: want}
}

func (r *Reader) processPedLine(fields []string) (apoe.Sample, bool, error) {
	want := leadingCols + r.opts.Columns.width()
	if len(fields) < want {
		return apoe.Sample{}, false, r.malformed(len(fields), want)
	}
	return apoe.Sample{
		FamilyID:     fields[0],
		IndividualID: fields[1],
		Phenotype:    fields[5],
		Snp1:         fields[leadingCols+r.opts.Columns.Snp1],
		Snp2:         fields[leadingCols+r.opts.Columns.Snp2],
	}, true, nil
}

// processRawHeader locates the two SNP columns by name in the .raw header
// and swaps in the row parser.
func (r *Reader) processRawHeader(fields []string) (apoe.Sample, bool, error) {
	var err error
	if len(fields) < leadingCols+2 || fields[0] != "FID" {
		return apoe.Sample{}, false, &MalformedRowError{File: r.filename, Line: r.line, Fields: len(fields), Want: leadingCols + 2,
			Msg: "expected a .raw header starting with FID and listing both SNPs"}
	}
	if r.rawSnp1, err = r.findRawColumn(fields, r.opts.Snp1); err != nil {
		return apoe.Sample{}, false, err
	}
	if r.rawSnp2, err = r.findRawColumn(fields, r.opts.Snp2); err != nil {
		return apoe.Sample{}, false, err
	}
	r.headerWidth = len(fields)
	r.processFunc = r.processRawLine
	return apoe.Sample{}, false, nil
}

// findRawColumn matches columns named <snp>_<allele>, optionally followed by
// the "(/other)" suffix plink2 appends.
func (r *Reader) findRawColumn(fields []string, snp string) (rawColumn, error) {
	var suffix string
	var found bool
	ans := rawColumn{idx: -1}
	for i := leadingCols; i < len(fields); i++ {
		if suffix, found = cutPrefix(fields[i], snp+"_"); !found || suffix == "" {
			continue
		}
		if len(suffix) > 1 && suffix[1] != '(' {
			continue
		}
		if ans.idx != -1 {
			return ans, &MalformedRowError{File: r.filename, Line: r.line, Fields: len(fields), Msg: fmt.Sprintf("%s appears in more than one column", snp)}
		}
		ans.idx = i
		ans.counted = strings.ToUpper(suffix)[0]
	}
	if ans.idx == -1 {
		return ans, &MalformedRowError{File: r.filename, Line: r.line, Fields: len(fields), Msg: fmt.Sprintf("no column for %s", snp)}
	}
	if ans.counted != 'C' && ans.counted != 'T' {
		return ans, &MalformedRowError{File: r.filename, Line: r.line, Fields: len(fields),
			Msg: fmt.Sprintf("%s counts allele '%c', expected C or T", snp, ans.counted)}
	}
	return ans, nil
}

func (r *Reader) processRawLine(fields []string) (apoe.Sample, bool, error) {
	if len(fields) != r.headerWidth {
		return apoe.Sample{}, false, r.widthMismatch(len(fields))
	}
	return apoe.Sample{
		FamilyID:     fields[0],
		IndividualID: fields[1],
		Phenotype:    fields[5],
		Snp1:         dosageToken(fields[r.rawSnp1.idx], r.rawSnp1.counted),
		Snp2:         dosageToken(fields[r.rawSnp2.idx], r.rawSnp2.counted),
	}, true, nil
}

// dosageToken converts an additive dosage of the counted allele back into a
// compound token. Anything that does not round to 0, 1 or 2 is missing.
func dosageToken(dose string, counted byte) string {
	d, err := strconv.ParseFloat(dose, 64)
	if err != nil || math.IsNaN(d) {
		return missingToken
	}
	n := int(math.Round(d))
	if n < 0 || n > 2 {
		return missingToken
	}
	if counted == 'T' {
		n = 2 - n
	}
	// n is now the number of C alleles
	switch n {
	case 0:
		return "TT"
	case 1:
		return "TC"
	default:
		return "CC"
	}
}

func (r *Reader) widthMismatch(fields int) error {
	return &MalformedRowError{File: r.filename, Line: r.line, Fields: fields, Want: r.headerWidth,
		Msg: fmt.Sprintf("found %d fields, header has %d", fields, r.headerWidth)}
}

func splitWhitespace(line string) ([]string, error) {
	return strings.Fields(line), nil
}

// splitDelimited parses one line of a Csv input. The delimiter is a tab when
// the first non-blank line contains one, a comma otherwise.
func (r *Reader) splitDelimited(line string) ([]string, error) {
	if r.delim == 0 {
		r.delim = ','
		if strings.ContainsRune(line, '\t') {
			r.delim = '\t'
		}
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = r.delim
	cr.LazyQuotes = true
	ans, err := cr.Read()
	if err != nil {
		return nil, &MalformedRowError{File: r.filename, Line: r.line, Msg: err.Error()}
	}
	for i := range ans {
		ans[i] = strings.TrimSpace(ans[i])
	}
	return ans, nil
}

// processCsvHeader finds the sample and SNP columns by exact name. FID and
// PHENO (or PHENOTYPE) are optional.
func (r *Reader) processCsvHeader(fields []string) (apoe.Sample, bool, error) {
	ans := csvColumns{fid: -1, iid: -1, pheno: -1, snp1: -1, snp2: -1}
	var target *int
	for i, name := range fields {
		switch name {
		case r.opts.SampleColumn:
			target = &ans.iid
		case r.opts.Snp1:
			target = &ans.snp1
		case r.opts.Snp2:
			target = &ans.snp2
		case csvFamilyColumn:
			target = &ans.fid
		case "PHENO", "PHENOTYPE":
			target = &ans.pheno
		default:
			continue
		}
		if *target != -1 {
			return apoe.Sample{}, false, &MalformedRowError{File: r.filename, Line: r.line, Fields: len(fields),
				Msg: fmt.Sprintf("column %s appears more than once", name)}
		}
		*target = i
	}
	var missing []string
	if ans.iid == -1 {
		missing = append(missing, r.opts.SampleColumn)
	}
	if ans.snp1 == -1 {
		missing = append(missing, r.opts.Snp1)
	}
	if ans.snp2 == -1 {
		missing = append(missing, r.opts.Snp2)
	}
	if len(missing) > 0 {
		return apoe.Sample{}, false, &MalformedRowError{File: r.filename, Line: r.line, Fields: len(fields),
			Msg: fmt.Sprintf("header is missing column(s) %s", strings.Join(missing, ", "))}
	}
	r.csvCols = ans
	r.headerWidth = len(fields)
	r.processFunc = r.processCsvLine
	return apoe.Sample{}, false, nil
}

// processCsvLine reads one sample. Without a FID column the family ID is
// the sample ID, and without a phenotype column the phenotype is missing.
func (r *Reader) processCsvLine(fields []string) (apoe.Sample, bool, error) {
	if len(fields) != r.headerWidth {
		return apoe.Sample{}, false, r.widthMismatch(len(fields))
	}
	ans := apoe.Sample{
		FamilyID:     fields[r.csvCols.iid],
		IndividualID: fields[r.csvCols.iid],
		Phenotype:    missingPhenotype,
		Snp1:         compoundToken(fields[r.csvCols.snp1]),
		Snp2:         compoundToken(fields[r.csvCols.snp2]),
	}
	if r.csvCols.fid != -1 {
		ans.FamilyID = fields[r.csvCols.fid]
	}
	if r.csvCols.pheno != -1 {
		ans.Phenotype = fields[r.csvCols.pheno]
	}
	return ans, true, nil
}

// compoundToken drops the separator from genotypes written as C/T or C|T.
func compoundToken(s string) string {
	if len(s) == 3 && (s[1] == '/' || s[1] == '|') {
		return s[:1] + s[2:]
	}
	return s
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// ReadAll materializes every sample in the file.
func ReadAll(filename string, opts Options) ([]apoe.Sample, error) {
	r, err := Open(filename, opts)
	if err != nil {
		return nil, err
	}
	var ans []apoe.Sample
	for r.Next() {
		ans = append(ans, r.Sample())
	}
	if err = r.Err(); err != nil {
		r.Close()
		return nil, err
	}
	if err = r.Close(); err != nil {
		return nil, pfx.Err(err)
	}
	if len(ans) == 0 {
		return nil, &EmptyInputError{File: filename}
	}
	return ans, nil
}
