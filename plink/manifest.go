package plink

import (
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/carbocation/pfx"
	"github.com/dasnellings/PGC_APOE/apoe"
	"gopkg.in/yaml.v2"
	"os"
	"path/filepath"
	"strings"
)

// Columns holds the 0-based positions of the two APOE genotype tokens,
// counted after the six leading PED columns.
type Columns struct {
	Snp1 int
	Snp2 int
}

// DefaultColumns matches `plink --extract` with rs429358 listed before rs7412.
var DefaultColumns = Columns{Snp1: 0, Snp2: 1}

func (c Columns) width() int {
	if c.Snp1 > c.Snp2 {
		return c.Snp1 + 1
	}
	return c.Snp2 + 1
}

// Manifest declares the order in which SNPs were requested from the
// extraction step, which is the order of their genotype columns.
type Manifest struct {
	Snps []string `yaml:"snps" toml:"snps"`
}

// LoadManifest reads a YAML or TOML manifest, chosen by file extension, and
// finds snp1 and snp2 in it. Empty IDs default to rs429358 and rs7412.
func LoadManifest(filename, snp1, snp2 string) (Columns, error) {
	var m Manifest
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(filename)
		if err != nil {
			return Columns{}, pfx.Err(err)
		}
		if err = yaml.Unmarshal(data, &m); err != nil {
			return Columns{}, pfx.Err(fmt.Errorf("%s: %w", filename, err))
		}
	case ".toml":
		if _, err := toml.DecodeFile(filename, &m); err != nil {
			return Columns{}, pfx.Err(fmt.Errorf("%s: %w", filename, err))
		}
	default:
		return Columns{}, fmt.Errorf("unrecognized manifest extension '%s', expected .yaml, .yml or .toml", filepath.Ext(filename))
	}
	return m.Columns(snp1, snp2)
}

// Columns resolves the positions of the two APOE SNPs within the manifest.
func (m Manifest) Columns(snp1, snp2 string) (Columns, error) {
	if snp1 == "" {
		snp1 = apoe.Rs429358
	}
	if snp2 == "" {
		snp2 = apoe.Rs7412
	}
	var ans Columns
	var err error
	if ans.Snp1, err = m.indexOf(snp1); err != nil {
		return Columns{}, err
	}
	if ans.Snp2, err = m.indexOf(snp2); err != nil {
		return Columns{}, err
	}
	if ans.Snp1 == ans.Snp2 {
		return Columns{}, fmt.Errorf("manifest maps %s and %s to the same column", snp1, snp2)
	}
	return ans, nil
}

func (m Manifest) indexOf(snp string) (int, error) {
	ans := -1
	for i := range m.Snps {
		if !strings.EqualFold(m.Snps[i], snp) {
			continue
		}
		if ans != -1 {
			return -1, fmt.Errorf("manifest lists %s more than once", snp)
		}
		ans = i
	}
	if ans == -1 {
		return -1, fmt.Errorf("manifest does not list %s", snp)
	}
	return ans, nil
}
