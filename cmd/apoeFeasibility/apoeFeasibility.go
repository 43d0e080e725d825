package main

import (
	"flag"
	"fmt"
	"github.com/dasnellings/PGC_APOE/apoe"
	"github.com/dasnellings/PGC_APOE/feasibility"
	log "github.com/sirupsen/logrus"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"strings"
)

func usage() {
	fmt.Print(
		"apoeFeasibility - Estimate how many genotyped participants meet APOE criteria for a study.\n" +
			"Usage:\n" +
			"./apoeFeasibility [options] batch1.APOE_GENOTYPES.csv batch2.APOE_GENOTYPES.csv ...\n\n")
	flag.PrintDefaults()
}

func main() {
	study := flag.String("study", "Unnamed Study", "Study name for the report header.")
	targets := flag.String("targets", "e3/e4,e4/e4", "Comma-separated eligible diplotypes. Empty means every diplotype not excluded.")
	exclude := flag.String("exclude", "", "Comma-separated diplotypes to exclude, e.g. e2/e2,e2/e3,e2/e4.")
	keepUndetermined := flag.Bool("keepUndetermined", false, "Do not exclude Undetermined and Invalid calls.")
	confidence := flag.Float64("confidence", 0.95, "Confidence level of the eligibility rate interval.")
	output := flag.String("o", "stdout", "Output report file.")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		log.Fatal("ERROR: at least one per-sample table is required")
	}

	c := feasibility.DefaultCriteria()
	c.Study = *study
	c.ExcludeUndetermined = !*keepUndetermined
	c.Confidence = *confidence
	var err error
	if c.Targets, err = parseDiplotypes(*targets); err != nil {
		log.Fatalf("ERROR: -targets: %v", err)
	}
	if c.Exclude, err = parseDiplotypes(*exclude); err != nil {
		log.Fatalf("ERROR: -exclude: %v", err)
	}

	report, err := apoeFeasibility(flag.Args(), c)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	out := fileio.EasyCreate(*output)
	_, err = out.Write([]byte(report.Format()))
	exception.PanicOnErr(err)
	err = out.Close()
	exception.PanicOnErr(err)
}

func apoeFeasibility(tables []string, c feasibility.Criteria) (feasibility.Report, error) {
	calls, err := apoe.ReadMergedCalls(tables...)
	if err != nil {
		return feasibility.Report{}, err
	}
	return feasibility.Estimate(calls, c)
}

func parseDiplotypes(s string) ([]apoe.Diplotype, error) {
	var ans []apoe.Diplotype
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		d, ok := apoe.ParseDiplotype(v)
		if !ok {
			return nil, fmt.Errorf("unknown diplotype '%s'", v)
		}
		ans = append(ans, d)
	}
	return ans, nil
}
