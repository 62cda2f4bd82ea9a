package exemplars

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Built-in exemplar corpus: short, representative known scams seen in the
// Malaysian market, English and Malay. Replaceable via exemplars.yaml.
var defaultExemplars = []Exemplar{
	{
		Text:     "RM0 MAYBANK: Your account has been suspended. Please verify at http://maybank2u-secure.com to restore access.",
		Category: "phishing",
		Language: "en",
	},
	{
		Text:     "LHDN: You have an unpaid tax penalty. Settle immediately or legal action will be taken. Call 03-XXXXXXXX.",
		Category: "impersonation",
		Language: "en",
	},
	{
		Text:     "Congratulations! You won RM10,000 in the Shopee lucky draw. Claim your prize by paying the RM100 processing fee.",
		Category: "prize-lottery",
		Language: "en",
	},
	{
		Text:     "Your parcel is held at customs. Pay the release fee at the link below or it will be returned.",
		Category: "payment-fraud",
		Language: "en",
	},
	{
		Text:     "Pihak PDRM: Waran tangkap telah dikeluarkan atas nama anda. Hubungi pegawai kami segera untuk selesaikan.",
		Category: "threat-extortion",
		Language: "ms",
	},
	{
		Text:     "Akaun CIMB anda disekat. Sila log masuk di pautan ini dan sahkan kata laluan anda dengan segera.",
		Category: "phishing",
		Language: "ms",
	},
	{
		Text:     "Tahniah! Anda terpilih menerima bantuan kerajaan RM2,500. Klik pautan dan masukkan nombor akaun untuk tuntut.",
		Category: "prize-lottery",
		Language: "ms",
	},
	{
		Text:     "Invest with our licensed platform, guaranteed 20% monthly returns. Limited slots, deposit today.",
		Category: "investment",
		Language: "en",
	},
}

// exemplarSeedFile is the YAML override schema (exemplars.yaml in the config
// directory). A non-empty file replaces the built-in corpus entirely.
type exemplarSeedFile struct {
	Exemplars []struct {
		Text     string `yaml:"text"`
		Category string `yaml:"category"`
		Language string `yaml:"language"`
	} `yaml:"exemplars"`
}

func loadExemplarSeeds() []Exemplar {
	configDir := os.Getenv("SCAMGUARD_CONFIG_DIR")
	if configDir == "" {
		return defaultExemplars
	}
	path := filepath.Join(configDir, "exemplars.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultExemplars
	}

	var file exemplarSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		log.Printf("[WARN] Failed to parse %s, using built-in exemplars: %v", path, err)
		return defaultExemplars
	}
	if len(file.Exemplars) == 0 {
		return defaultExemplars
	}

	seeds := make([]Exemplar, 0, len(file.Exemplars))
	for _, e := range file.Exemplars {
		if e.Text == "" {
			continue
		}
		if e.Category == "" {
			e.Category = "other"
		}
		if e.Language == "" {
			e.Language = "en"
		}
		seeds = append(seeds, Exemplar{Text: e.Text, Category: e.Category, Language: e.Language})
	}
	if len(seeds) == 0 {
		return defaultExemplars
	}
	log.Printf("[INFO] Loaded %d exemplars from %s", len(seeds), path)
	return seeds
}
