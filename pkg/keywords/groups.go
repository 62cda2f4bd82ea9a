package keywords

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// KEYWORD GROUP DEFINITIONS
// Each group mixes English and Malay terms. The lists are deliberately short
// and high-precision: the heuristic stage caps per-group contributions, so
// breadth across groups matters more than depth within one.
// =============================================================================

var defaultKeywordSeeds = map[Tactic][]string{
	TacticUrgency: {
		// English
		"urgent", "immediately", "right away", "expire", "expires", "expired",
		"last chance", "act now", "within 24 hours", "final notice", "asap",
		// Malay
		"segera", "dengan segera", "tamat tempoh", "peluang terakhir",
		"jangan lewat", "hari ini juga",
	},
	TacticAuthority: {
		// English
		"bank negara", "lhdn", "inland revenue", "police", "court", "customs",
		"immigration", "government", "officer", "official notice", "ministry",
		"tax department",
		// Malay
		"polis", "pdrm", "mahkamah", "kastam", "imigresen", "kerajaan",
		"pegawai", "jabatan", "notis rasmi", "pihak berkuasa",
	},
	TacticMoneyPressure: {
		// English
		"transfer", "payment", "pay now", "deposit", "outstanding", "fee",
		"fine", "processing fee", "settlement", "remittance", "top up",
		// Malay
		"bayar", "bayaran", "pindahkan", "tunggakan", "yuran", "denda",
		"wang pendahuluan", "caj",
	},
	TacticThreat: {
		// English
		"suspended", "blocked", "terminated", "legal action", "arrest",
		"warrant", "penalty", "lawsuit", "frozen", "deactivated",
		"will be closed",
		// Malay
		"disekat", "digantung", "dibekukan", "tindakan undang-undang",
		"waran", "saman", "ditamatkan", "ditahan",
	},
	TacticVerification: {
		// English
		"verify", "verification", "confirm your", "update your details",
		"click the link", "click link", "login", "log in", "otp", "tac",
		"password", "ic number", "re-activate", "validate",
		// Malay
		"sahkan", "pengesahan", "kemaskini", "klik pautan", "log masuk",
		"kata laluan", "kad pengenalan", "nombor akaun",
	},
	TacticGreed: {
		// English
		"won", "winner", "prize", "reward", "lucky", "free gift", "jackpot",
		"lottery", "cashback", "bonus", "claim your", "congratulations",
		// Malay
		"menang", "pemenang", "hadiah", "ganjaran", "bertuah", "percuma",
		"tahniah", "tuntut",
	},
}

// keywordSeedFile is the YAML override schema (keywords.yaml in the config
// directory). Groups present in the file replace the built-in list; absent
// groups keep their defaults.
type keywordSeedFile struct {
	Groups map[string][]string `yaml:"groups"`
}

func loadKeywordSeeds() map[Tactic][]string {
	seeds := make(map[Tactic][]string, len(defaultKeywordSeeds))
	for k, v := range defaultKeywordSeeds {
		seeds[k] = v
	}

	configDir := os.Getenv("SCAMGUARD_CONFIG_DIR")
	if configDir == "" {
		return seeds
	}
	path := filepath.Join(configDir, "keywords.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return seeds
	}

	var file keywordSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		log.Printf("[WARN] Failed to parse %s, using built-in keyword groups: %v", path, err)
		return seeds
	}

	loaded := 0
	for name, words := range file.Groups {
		tactic := Tactic(name)
		if _, ok := seeds[tactic]; !ok {
			log.Printf("[WARN] Unknown keyword group %q in %s, skipping", name, path)
			continue
		}
		if len(words) > 0 {
			seeds[tactic] = words
			loaded++
		}
	}
	if loaded > 0 {
		log.Printf("[INFO] Loaded %d keyword group overrides from %s", loaded, path)
	}
	return seeds
}
