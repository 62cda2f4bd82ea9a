package textnorm

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// Organization-name substitution (step 8). Names are matched
// case-insensitively on word boundaries and replaced with a category
// placeholder so "Maybank" and "CIMB" normalize to the same token.

// Default tables cover the organizations most commonly impersonated in the
// scam corpus the model was trained on (Malaysian market plus the usual
// international couriers). A deployment can override them with orgs.yaml.
var defaultBankNames = []string{
	"maybank", "cimb", "public bank", "rhb", "hong leong bank", "ambank",
	"bank islam", "bank rakyat", "bank negara", "bsn", "uob", "ocbc",
	"hsbc", "standard chartered", "affin bank", "alliance bank",
	"touch n go", "touch 'n go", "tng ewallet", "paypal",
}

var defaultTelcoNames = []string{
	"celcom", "maxis", "digi", "u mobile", "umobile", "unifi", "tm",
	"celcomdigi", "yes 4g", "redone",
}

var defaultCourierNames = []string{
	"pos laju", "poslaju", "pos malaysia", "j&t", "j&t express", "gdex",
	"dhl", "fedex", "ninja van", "ninjavan", "city-link", "shopee express",
	"flash express", "aramex",
}

type orgReplacer struct {
	pattern     *regexp.Regexp
	placeholder string
}

var (
	orgReplacers []orgReplacer
	orgInit      sync.Once
)

// orgSeedFile is the YAML override schema for organization tables.
type orgSeedFile struct {
	Banks    []string `yaml:"banks"`
	Telcos   []string `yaml:"telcos"`
	Couriers []string `yaml:"couriers"`
}

// loadOrgTables returns the organization tables, preferring orgs.yaml from
// the config directory and falling back to the hardcoded defaults.
func loadOrgTables() (banks, telcos, couriers []string) {
	banks, telcos, couriers = defaultBankNames, defaultTelcoNames, defaultCourierNames

	configDir := os.Getenv("SCAMGUARD_CONFIG_DIR")
	if configDir == "" {
		return
	}
	path := filepath.Join(configDir, "orgs.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var seeds orgSeedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		log.Printf("[WARN] Failed to parse %s, using built-in organization tables: %v", path, err)
		return
	}
	if len(seeds.Banks) > 0 {
		banks = seeds.Banks
	}
	if len(seeds.Telcos) > 0 {
		telcos = seeds.Telcos
	}
	if len(seeds.Couriers) > 0 {
		couriers = seeds.Couriers
	}
	log.Printf("[INFO] Loaded organization tables from %s (%d banks, %d telcos, %d couriers)",
		path, len(banks), len(telcos), len(couriers))
	return
}

// compileOrgPattern builds a single case-insensitive alternation for a name
// list. Longer names first so "bank islam" wins over any shorter overlap.
func compileOrgPattern(names []string) *regexp.Regexp {
	sorted := make([]string, len(names))
	copy(sorted, names)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if len(sorted[j]) > len(sorted[i]) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	alternation := ""
	for i, name := range sorted {
		if i > 0 {
			alternation += "|"
		}
		alternation += regexp.QuoteMeta(name)
	}
	return regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:%s)\b`, alternation))
}

func initOrgReplacers() {
	banks, telcos, couriers := loadOrgTables()
	orgReplacers = []orgReplacer{
		{compileOrgPattern(banks), PlaceholderBank},
		{compileOrgPattern(telcos), PlaceholderTelco},
		{compileOrgPattern(couriers), PlaceholderCourier},
	}
}

func replaceOrganizations(text string) string {
	orgInit.Do(initOrgReplacers)
	for _, r := range orgReplacers {
		text = r.pattern.ReplaceAllString(text, r.placeholder)
	}
	return text
}
