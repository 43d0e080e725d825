package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config is read from APOE_* environment variables. Command-line flags
// override it, and the result is passed explicitly to the parser and classifier.
type Config struct {
	Format       string   `envconfig:"FORMAT" default:"ped"`
	Manifest     string   `envconfig:"MANIFEST"`
	Missing      []string `envconfig:"MISSING" default:"00,NN,--,.."`
	Snp1         string   `envconfig:"SNP1" default:"rs429358"`
	Snp2         string   `envconfig:"SNP2" default:"rs7412"`
	SampleColumn string   `envconfig:"SAMPLE_COLUMN" default:"IID"`
	Gzip         bool     `envconfig:"GZIP"`
	Annotate     bool     `envconfig:"ANNOTATE"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("apoe", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
