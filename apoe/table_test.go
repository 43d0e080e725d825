package apoe

import (
	"bytes"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tableFixture() []Call {
	return DefaultClassifier().ClassifyAll([]Sample{
		{FamilyID: "F1", IndividualID: "I1", Phenotype: "2", Snp1: "TT", Snp2: "TT"},
		{FamilyID: "F1", IndividualID: "I2", Phenotype: "1", Snp1: "TC", Snp2: "CC"},
		{FamilyID: "F2", IndividualID: "I1", Phenotype: "1", Snp1: "00", Snp2: "TT"},
		{FamilyID: "F3", IndividualID: "I9", Phenotype: "-9", Snp1: "CC", Snp2: "TT"},
	})
}

const wantCalls = `FID,IID,PHENO,rs429358,rs7412,APOE_GENOTYPE
F1,I1,2,TT,TT,e2/e2
F1,I2,1,TC,CC,e3/e4
F2,I1,1,00,TT,Undetermined
F3,I9,-9,CC,TT,Invalid
`

const wantSummary = `APOE_GENOTYPE,TOTAL_COUNT,TOTAL_PROPORTION,CASES_COUNT,CASES_PROPORTION,CONTROLS_COUNT,CONTROLS_PROPORTION,MISSING_PHENO_COUNT,MISSING_PHENO_PROPORTION
e2/e2,1,0.25,1,1,0,0,0,0
e2/e3,0,0,0,0,0,0,0,0
e2/e4,0,0,0,0,0,0,0,0
e3/e3,0,0,0,0,0,0,0,0
e3/e4,1,0.25,0,0,1,0.5,0,0
e4/e4,0,0,0,0,0,0,0,0
Undetermined,1,0.25,0,0,1,0.5,0,0
Invalid,1,0.25,0,0,0,0,1,1
`

func TestWriteCalls(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCalls(&buf, tableFixture(), Rs429358, Rs7412))
	assert.Equal(t, wantCalls, buf.String())
}

func TestWriteAnnotatedCalls(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnnotatedCalls(&buf, tableFixture(), Rs429358, Rs7412))
	assert.Equal(t, `FID,IID,PHENO,rs429358,rs7412,APOE_GENOTYPE,RISK_PROFILE,E4_CARRIER,E2_CARRIER
F1,I1,2,TT,TT,e2/e2,Reduced risk,false,true
F1,I2,1,TC,CC,e3/e4,Increased risk,true,false
F2,I1,1,00,TT,Undetermined,Unknown,false,false
F3,I9,-9,CC,TT,Invalid,Unknown,false,false
`, buf.String())
}

func TestWriteSummary(t *testing.T) {
	t.Run("should write all eight rows with observed strata", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSummary(&buf, Summarize(tableFixture())))
		assert.Equal(t, wantSummary, buf.String())
	})

	t.Run("should omit strata without samples", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSummary(&buf, Summarize(callsOf("1", E3E3))))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1+len(AllDiplotypes))
		assert.Equal(t, "APOE_GENOTYPE,TOTAL_COUNT,TOTAL_PROPORTION,CONTROLS_COUNT,CONTROLS_PROPORTION", lines[0])
		assert.Equal(t, "e3/e3,1,1,1,1", lines[4])
	})

	t.Run("should be byte identical across runs", func(t *testing.T) {
		var a, b bytes.Buffer
		require.NoError(t, WriteSummary(&a, Summarize(tableFixture())))
		require.NoError(t, WriteSummary(&b, Summarize(tableFixture())))
		assert.Equal(t, a.Bytes(), b.Bytes())
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCalls(t *testing.T) {
	dir := t.TempDir()

	t.Run("should recover calls written by WriteCalls", func(t *testing.T) {
		path := writeFile(t, dir, "batch1.csv", wantCalls)
		header, calls, err := ReadCalls(path)
		require.NoError(t, err)

		assert.Equal(t, CallsHeader(Rs429358, Rs7412), header)
		want := tableFixture()
		require.Len(t, calls, len(want))
		for i := range want {
			assert.Equal(t, want[i].Sample, calls[i].Sample)
			assert.Equal(t, want[i].Diplotype, calls[i].Diplotype)
			assert.Equal(t, want[i].Outcome, calls[i].Outcome)
		}
	})

	t.Run("should give every unresolved call a reason", func(t *testing.T) {
		_, calls, err := ReadCalls(writeFile(t, dir, "reasons.csv", wantCalls))
		require.NoError(t, err)
		assert.NoError(t, calls[0].Reason)
		assert.ErrorIs(t, calls[2].Reason, ErrMissingGenotype)
		assert.ErrorIs(t, calls[3].Reason, ErrInvalidCall)
		assert.Equal(t, InvalidCombination, calls[3].Outcome)
	})

	t.Run("should ignore annotation columns", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteAnnotatedCalls(&buf, tableFixture(), Rs429358, Rs7412))
		header, calls, err := ReadCalls(writeFile(t, dir, "annotated.csv", buf.String()))
		require.NoError(t, err)
		assert.Equal(t, AnnotatedCallsHeader(Rs429358, Rs7412), header)
		require.Len(t, calls, 4)
		assert.Equal(t, E3E4, calls[1].Diplotype)
	})

	t.Run("should reject a header without the genotype column", func(t *testing.T) {
		_, _, err := ReadCalls(writeFile(t, dir, "nolabel.csv", "FID,IID,PHENO,rs429358,rs7412\nF,I,1,TC,CC\n"))
		var tableErr *TableError
		require.True(t, errors.As(err, &tableErr))
		assert.Equal(t, 1, tableErr.Line)
	})

	t.Run("should reject unknown labels", func(t *testing.T) {
		path := writeFile(t, dir, "bad.csv", "FID,IID,PHENO,rs429358,rs7412,APOE_GENOTYPE\nF,I,1,TC,TC,e1/e3\n")
		_, _, err := ReadCalls(path)
		var tableErr *TableError
		require.True(t, errors.As(err, &tableErr))
		assert.Equal(t, 2, tableErr.Line)
	})

	t.Run("should reject short rows", func(t *testing.T) {
		path := writeFile(t, dir, "short.csv", "FID,IID,PHENO,rs429358,rs7412,APOE_GENOTYPE\nF,I,1,TC\n")
		_, _, err := ReadCalls(path)
		assert.Error(t, err)
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, _, err := ReadCalls(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})
}

func TestReadMergedCalls(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.csv", wantCalls)
	second := writeFile(t, dir, "b.csv", "FID,IID,PHENO,rs429358,rs7412,APOE_GENOTYPE\nF9,I1,2,CC,CC,e4/e4\n")

	t.Run("should concatenate tables and allow a fresh summary", func(t *testing.T) {
		calls, err := ReadMergedCalls(first, second)
		require.NoError(t, err)
		require.Len(t, calls, 5)

		s := Summarize(calls)
		assert.Equal(t, 5, s.Overall.Total)
		assert.Equal(t, 1, s.Overall.Counts[E4E4])
		assert.Equal(t, 2, s.Strata[Case].Total)
		assert.Equal(t, 0.2, s.Overall.Proportion(Invalid))
	})

	t.Run("should refuse tables with different headers", func(t *testing.T) {
		other := writeFile(t, dir, "c.csv", "FID,IID,PHENO,snpA,snpB,APOE_GENOTYPE\nF,I,1,TT,CC,e3/e3\n")
		_, err := ReadMergedCalls(first, other)
		var mismatch *SchemaMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, other, mismatch.File)
	})
}
