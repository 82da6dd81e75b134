package signals

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/halcyonsec/qrverdict/internal/homoglyph"
)

// Brand contribution is capped at 20 of the total 100-point budget.
const maxBrandScore = 20

// Brand describes one protected brand: its official domains, known
// typosquats and the keywords used for combosquat detection.
type Brand struct {
	Name       string   `yaml:"name"`
	Domains    []string `yaml:"domains"`
	Typosquats []string `yaml:"typosquats,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty"`
}

// BrandDatabase is an immutable lookup structure compiled from a brand
// list. Construct isolated instances in tests instead of sharing
// global state.
type BrandDatabase struct {
	brands    []Brand
	official  map[string]string // official domain -> brand name
	typos     map[string]string // known typosquat -> brand name
	skeletons map[string]string // skeleton(official domain) -> brand name
	keywords  map[string]string // combosquat keyword -> brand name
}

type brandFile struct {
	Brands []Brand `yaml:"brands"`
}

func compileBrandDatabase(brands []Brand) *BrandDatabase {
	db := &BrandDatabase{
		brands:    brands,
		official:  make(map[string]string),
		typos:     make(map[string]string),
		skeletons: make(map[string]string),
		keywords:  make(map[string]string),
	}
	for _, b := range brands {
		for _, d := range b.Domains {
			d = strings.ToLower(d)
			db.official[d] = b.Name
			db.skeletons[homoglyph.Skeleton(d)] = b.Name
		}
		for _, t := range b.Typosquats {
			db.typos[strings.ToLower(t)] = b.Name
		}
		for _, k := range b.Keywords {
			db.keywords[strings.ToLower(k)] = b.Name
		}
	}
	return db
}

// LoadBrandDatabase reads a YAML brand list from disk
func LoadBrandDatabase(path string) (*BrandDatabase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read brand database: %w", err)
	}
	var f brandFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse brand database: %w", err)
	}
	if len(f.Brands) == 0 {
		return nil, fmt.Errorf("brand database is empty")
	}
	return compileBrandDatabase(f.Brands), nil
}

// DefaultBrandDatabase returns the compiled-in brand set
func DefaultBrandDatabase() *BrandDatabase {
	return compileBrandDatabase([]Brand{
		{Name: "paypal", Domains: []string{"paypal.com", "paypal.me"}, Keywords: []string{"paypal"}},
		{Name: "apple", Domains: []string{"apple.com", "icloud.com"}, Keywords: []string{"apple", "icloud"}},
		{Name: "google", Domains: []string{"google.com", "gmail.com", "youtube.com"}, Keywords: []string{"google", "gmail"}},
		{Name: "microsoft", Domains: []string{"microsoft.com", "live.com", "outlook.com", "office.com"}, Keywords: []string{"microsoft", "outlook", "office365"}},
		{Name: "amazon", Domains: []string{"amazon.com", "amazonaws.com"}, Keywords: []string{"amazon"}},
		{Name: "facebook", Domains: []string{"facebook.com", "fb.com", "instagram.com", "whatsapp.com"}, Keywords: []string{"facebook", "instagram", "whatsapp"}},
		{Name: "netflix", Domains: []string{"netflix.com"}, Keywords: []string{"netflix"}},
		{Name: "chase", Domains: []string{"chase.com"}, Keywords: []string{"chase"}},
		{Name: "wellsfargo", Domains: []string{"wellsfargo.com"}, Keywords: []string{"wellsfargo"}},
		{Name: "coinbase", Domains: []string{"coinbase.com"}, Keywords: []string{"coinbase"}},
		{Name: "binance", Domains: []string{"binance.com"}, Keywords: []string{"binance"}},
		{Name: "steam", Domains: []string{"steampowered.com", "steamcommunity.com"}, Keywords: []string{"steam"}},
		{Name: "dhl", Domains: []string{"dhl.com", "dhl.de"}, Keywords: []string{"dhl"}},
		{Name: "usps", Domains: []string{"usps.com"}, Keywords: []string{"usps"}},
		{Name: "github", Domains: []string{"github.com"}, Keywords: []string{"github"}},
	})
}

// BrandMatch is the outcome of brand impersonation detection
type BrandMatch struct {
	Score     int      `json:"score"`
	Brand     string   `json:"brand,omitempty"`
	MatchType string   `json:"match_type,omitempty"` // official, typosquat, homograph, combosquat
	Flags     []string `json:"flags,omitempty"`
}

// BrandDetector matches hostnames against a brand database. Any
// non-official match scores impersonation.
type BrandDetector struct {
	db *BrandDatabase
}

// NewBrandDetector wraps a database; pass nil for the default set
func NewBrandDetector(db *BrandDatabase) *BrandDetector {
	if db == nil {
		db = DefaultBrandDatabase()
	}
	return &BrandDetector{db: db}
}

// Detect inspects a hostname for brand impersonation
func (d *BrandDetector) Detect(host string) BrandMatch {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return BrandMatch{}
	}

	// Official domains and their subdomains are never impersonation.
	for domain, brand := range d.db.official {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return BrandMatch{Brand: brand, MatchType: "official"}
		}
	}

	reg := registrableDomain(host)

	if brand, ok := d.db.typos[reg]; ok {
		return BrandMatch{
			Score:     maxBrandScore,
			Brand:     brand,
			MatchType: "typosquat",
			Flags:     []string{"BRAND_IMPERSONATION", "BRAND_TYPOSQUAT"},
		}
	}

	// Homograph / skeleton matching catches look-alikes that were
	// never explicitly listed.
	if sk := homoglyph.Skeleton(reg); sk != reg {
		if brand, ok := d.db.skeletons[sk]; ok {
			return BrandMatch{
				Score:     maxBrandScore,
				Brand:     brand,
				MatchType: "homograph",
				Flags:     []string{"BRAND_IMPERSONATION", "BRAND_HOMOGRAPH"},
			}
		}
	}

	// Combosquat: brand keyword embedded in an unrelated registrable
	// label (paypal-secure-login.com).
	label := registrableLabel(host)
	for keyword, brand := range d.db.keywords {
		if strings.Contains(label, keyword) && label != keyword {
			return BrandMatch{
				Score:     15,
				Brand:     brand,
				MatchType: "combosquat",
				Flags:     []string{"BRAND_IMPERSONATION", "BRAND_COMBOSQUAT"},
			}
		}
	}

	return BrandMatch{}
}

// registrableDomain approximates the registrable domain as the last two
// dot-separated labels.
func registrableDomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
