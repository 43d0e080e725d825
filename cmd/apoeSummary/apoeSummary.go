package main

import (
	"bytes"
	"flag"
	"fmt"
	"github.com/dasnellings/PGC_APOE/apoe"
	log "github.com/sirupsen/logrus"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

func usage() {
	fmt.Print(
		"apoeSummary - Rebuild the APOE summary table from one or more per-sample tables.\n" +
			"Per-batch summaries cannot be added together; merge the per-sample tables with this tool instead.\n" +
			"Usage:\n" +
			"./apoeSummary [options] batch1.APOE_GENOTYPES.csv batch2.APOE_GENOTYPES.csv ...\n\n")
	flag.PrintDefaults()
}

func main() {
	output := flag.String("o", "stdout", "Output summary file.")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		log.Fatal("ERROR: at least one per-sample table is required")
	}

	if err := apoeSummary(flag.Args(), *output); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func apoeSummary(tables []string, output string) error {
	calls, err := apoe.ReadMergedCalls(tables...)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		return fmt.Errorf("no samples found in %d table(s)", len(tables))
	}

	summary := apoe.Summarize(calls)
	var buf bytes.Buffer
	if err = apoe.WriteSummary(&buf, summary); err != nil {
		return err
	}

	out := fileio.EasyCreate(output)
	_, err = out.Write(buf.Bytes())
	exception.PanicOnErr(err)
	err = out.Close()
	exception.PanicOnErr(err)

	log.WithFields(log.Fields{
		"tables":  len(tables),
		"samples": summary.Overall.Total,
	}).Info("summary rebuilt")
	return nil
}
