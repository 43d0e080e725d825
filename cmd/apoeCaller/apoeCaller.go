package main

import (
	"bytes"
	"flag"
	"fmt"
	"github.com/carbocation/pfx"
	"github.com/dasnellings/PGC_APOE/apoe"
	"github.com/dasnellings/PGC_APOE/config"
	"github.com/dasnellings/PGC_APOE/plink"
	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"os"
	"path/filepath"
	"strings"
)

const (
	genotypesSuffix string = ".APOE_GENOTYPES.csv"
	summarySuffix   string = ".APOE_SUMMARY.csv"
)

func usage() {
	fmt.Print(
		"apoeCaller - Call APOE diplotypes from rs429358 and rs7412 genotypes and summarize them by phenotype.\n" +
			"Usage:\n" +
			"./apoeCaller [options] -i cohort.ped -o outputPrefix\n\n" +
			"The input is produced upstream with e.g.\n" +
			"  plink --bfile <prefix> --extract apoe_snps.txt --recode compound-genotypes --out <prefix>\n" +
			"A csv input needs a header naming the sample column and both SNP columns.\n" +
			"Options may also be set with APOE_FORMAT, APOE_MANIFEST, APOE_MISSING, APOE_SNP1, APOE_SNP2,\n" +
			"APOE_SAMPLE_COLUMN, APOE_GZIP and APOE_ANNOTATE.\n\n")
	flag.PrintDefaults()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ERROR: could not read APOE_* environment: %v", err)
	}

	input := flag.String("i", "", "Genotype file from the extraction step (.ped with compound genotypes, .raw, or a csv/tsv table). May be gzipped.")
	output := flag.String("o", "", "Output prefix. Writes <prefix>"+genotypesSuffix+" and <prefix>"+summarySuffix+".")
	format := flag.String("format", cfg.Format, "Input format: ped, raw or csv.")
	manifest := flag.String("manifest", cfg.Manifest, "Optional .yaml/.toml manifest listing the extracted SNPs in column order (ped only).")
	missing := flag.String("missing", strings.Join(cfg.Missing, ","), "Comma-separated genotype tokens that mean a failed call.")
	snp1 := flag.String("snp1", cfg.Snp1, "ID of the codon 112 SNP.")
	snp2 := flag.String("snp2", cfg.Snp2, "ID of the codon 158 SNP.")
	sampleCol := flag.String("sampleCol", cfg.SampleColumn, "Sample ID column of a csv input.")
	gzipOut := flag.Bool("gzip", cfg.Gzip, "Gzip both output tables.")
	annotate := flag.Bool("annotate", cfg.Annotate, "Add RISK_PROFILE, E4_CARRIER and E2_CARRIER columns to the per-sample table.")
	verbose := flag.Bool("v", false, "Log every undetermined sample.")
	flag.Usage = usage
	flag.Parse()

	if *input == "" || *output == "" {
		usage()
		log.Fatal("ERROR: input and output prefix are required (-i, -o)")
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg.Format = *format
	cfg.Manifest = *manifest
	cfg.Missing = splitList(*missing)
	cfg.Snp1 = *snp1
	cfg.Snp2 = *snp2
	cfg.SampleColumn = *sampleCol
	cfg.Gzip = *gzipOut
	cfg.Annotate = *annotate

	if _, err = apoeCaller(*input, *output, cfg); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

// apoeCaller runs one cohort end to end and returns the paths it wrote.
// Either both tables are written or neither is.
func apoeCaller(input, prefix string, cfg *config.Config) ([]string, error) {
	opts, err := readerOptions(cfg)
	if err != nil {
		return nil, err
	}

	samples, err := plink.ReadAll(input, opts)
	if err != nil {
		return nil, err
	}

	classifier := apoe.Classifier{Missing: cfg.Missing}
	calls := classifier.ClassifyAll(samples)
	summary := apoe.Summarize(calls)
	logCalls(input, calls, summary)

	var genotypes, stats bytes.Buffer
	if cfg.Annotate {
		err = apoe.WriteAnnotatedCalls(&genotypes, calls, cfg.Snp1, cfg.Snp2)
	} else {
		err = apoe.WriteCalls(&genotypes, calls, cfg.Snp1, cfg.Snp2)
	}
	if err != nil {
		return nil, err
	}
	if err = apoe.WriteSummary(&stats, summary); err != nil {
		return nil, err
	}

	outputs := []output{
		{filename: prefix + genotypesSuffix, data: genotypes.Bytes()},
		{filename: prefix + summarySuffix, data: stats.Bytes()},
	}
	if cfg.Gzip {
		for i := range outputs {
			outputs[i].filename += ".gz"
			if outputs[i].data, err = gzipBytes(outputs[i].data); err != nil {
				return nil, err
			}
		}
	}
	if err = publish(outputs); err != nil {
		return nil, err
	}
	genoOut, summaryOut := outputs[0].filename, outputs[1].filename
	log.Infof("Genotypes saved to: %s", genoOut)
	log.Infof("Summary saved to:   %s", summaryOut)
	return []string{genoOut, summaryOut}, nil
}

func readerOptions(cfg *config.Config) (plink.Options, error) {
	var err error
	opts := plink.DefaultOptions()
	opts.Snp1 = cfg.Snp1
	opts.Snp2 = cfg.Snp2
	opts.SampleColumn = cfg.SampleColumn
	if opts.Format, err = plink.ParseFormat(cfg.Format); err != nil {
		return opts, err
	}
	if cfg.Manifest != "" {
		if opts.Format != plink.Ped {
			return opts, fmt.Errorf("a manifest only applies to ped input, the %s header already names its columns", opts.Format)
		}
		if opts.Columns, err = plink.LoadManifest(cfg.Manifest, cfg.Snp1, cfg.Snp2); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func logCalls(input string, calls []apoe.Call, summary apoe.Summary) {
	for i := range calls {
		switch calls[i].Outcome {
		case apoe.InvalidCombination:
			log.WithFields(log.Fields{
				"fid":      calls[i].FamilyID,
				"iid":      calls[i].IndividualID,
				"rs429358": calls[i].Snp1,
				"rs7412":   calls[i].Snp2,
			}).Warnf("invalid genotype: %v", calls[i].Reason)
		case apoe.MissingData:
			log.WithFields(log.Fields{
				"fid": calls[i].FamilyID,
				"iid": calls[i].IndividualID,
			}).Debugf("undetermined: %v", calls[i].Reason)
		}
	}
	carriers := summary.CarrierCounts()
	log.WithFields(log.Fields{
		"input":        input,
		"samples":      summary.Overall.Total,
		"undetermined": summary.Overall.Counts[apoe.Undetermined],
		"invalid":      summary.Overall.Counts[apoe.Invalid],
		"e4Carriers":   carriers.E4Carriers,
		"e2Carriers":   carriers.E2Carriers,
		"e3e3":         carriers.E3E3,
	}).Info("APOE calls complete")
}

type output struct {
	filename string
	data     []byte
}

// publish writes every output to a temporary file beside its target and
// renames them into place once all are on disk. On failure the temporaries
// and any already renamed outputs are removed.
func publish(outputs []output) error {
	var err error
	var info os.FileInfo
	for i := range outputs {
		if info, err = os.Stat(outputs[i].filename); err == nil && info.IsDir() {
			return fmt.Errorf("cannot write %s: is a directory", outputs[i].filename)
		}
	}

	staged := make([]string, 0, len(outputs))
	var tmp string
	for i := range outputs {
		if tmp, err = stage(outputs[i].filename, outputs[i].data); err != nil {
			removeAll(staged)
			return err
		}
		staged = append(staged, tmp)
	}

	for i := range outputs {
		if err = os.Rename(staged[i], outputs[i].filename); err != nil {
			for j := 0; j < i; j++ {
				os.Remove(outputs[j].filename)
			}
			removeAll(staged[i:])
			return pfx.Err(err)
		}
	}
	return nil
}

func stage(filename string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return "", pfx.Err(err)
	}
	if _, err = f.Write(data); err == nil {
		err = f.Chmod(0644)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", pfx.Err(err)
	}
	return f.Name(), nil
}

func removeAll(filenames []string) {
	for _, f := range filenames {
		os.Remove(f)
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitList(s string) []string {
	var ans []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			ans = append(ans, v)
		}
	}
	return ans
}
