package procurement

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Website is a vendor site chosen by the planner. Address keeps the form
// the service gave (domain or URL); Host is the lowercase host without a
// leading "www." and is what deduplication compares.
type Website struct {
	Address string
	Host    string
}

// ParseWebsite validates raw as a domain or http(s) URL.
func ParseWebsite(raw string) (Website, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`<>()[],;")
	s = strings.TrimRight(s, "/.")
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return Website{}, fmt.Errorf("%w: %q", ErrInvalidWebsite, raw)
	}

	full := s
	if !strings.Contains(s, "://") {
		full = "https://" + s
	}
	u, err := url.Parse(full)
	if err != nil {
		return Website{}, fmt.Errorf("%w: %q: %v", ErrInvalidWebsite, raw, err)
	}
	if u.User != nil {
		return Website{}, fmt.Errorf("%w: %q: unexpected user info", ErrInvalidWebsite, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Website{}, fmt.Errorf("%w: %q: unsupported scheme %s", ErrInvalidWebsite, raw, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if tld := host[strings.LastIndex(host, ".")+1:]; !strings.Contains(host, ".") || len(tld) < 2 || strings.HasPrefix(host, ".") {
		return Website{}, fmt.Errorf("%w: %q: no usable host", ErrInvalidWebsite, raw)
	}

	return Website{Address: s, Host: strings.TrimPrefix(host, "www.")}, nil
}

// URL returns the site as an absolute URL.
func (w Website) URL() string {
	if strings.Contains(w.Address, "://") {
		return w.Address
	}
	return "https://" + w.Address
}

func (w Website) String() string { return w.Address }

func (w Website) MarshalText() ([]byte, error) { return []byte(w.Address), nil }

func (w *Website) UnmarshalText(b []byte) error {
	parsed, err := ParseWebsite(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ImageRef points at one product image.
type ImageRef struct {
	URL string `json:"url" yaml:"url"`
}

// ProductRecord is one listing found on one site.
type ProductRecord struct {
	Name string `json:"name" yaml:"name"`
	// Price is the listing's price text as found, e.g. "$10.00" or "EUR 12,50".
	Price   string     `json:"price" yaml:"price"`
	Website Website    `json:"website" yaml:"website"`
	URL     string     `json:"url" yaml:"url"`
	Images  []ImageRef `json:"images" yaml:"images"`
}

// PriceRange is the lowest and highest parseable price of a result set, or
// unknown when no price parses.
type PriceRange struct {
	Known bool
	// Min and Max are the original price strings.
	Min, Max           string
	MinValue, MaxValue float64
}

func (p PriceRange) String() string {
	if !p.Known {
		return "unknown"
	}
	return p.Min + " - " + p.Max
}

type priceBounds struct {
	Min string `json:"min" yaml:"min"`
	Max string `json:"max" yaml:"max"`
}

func (p PriceRange) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return json.Marshal("unknown")
	}
	return json.Marshal(priceBounds{Min: p.Min, Max: p.Max})
}

func (p *PriceRange) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = PriceRange{}
		return nil
	}
	var pb priceBounds
	if err := json.Unmarshal(b, &pb); err != nil {
		return err
	}
	*p = PriceRange{Known: true, Min: pb.Min, Max: pb.Max}
	p.MinValue, _ = parsePrice(pb.Min)
	p.MaxValue, _ = parsePrice(pb.Max)
	return nil
}

func (p PriceRange) MarshalYAML() (any, error) {
	if !p.Known {
		return "unknown", nil
	}
	return priceBounds{Min: p.Min, Max: p.Max}, nil
}

// SiteOutcome tells how one site's search task went.
type SiteOutcome struct {
	Website  Website `json:"website" yaml:"website"`
	Products int     `json:"products" yaml:"products"`
	Dropped  int     `json:"dropped" yaml:"dropped"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// SearchReport is the merged result of a search. TotalProducts always
// equals len(Products).
type SearchReport struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	Query         string          `json:"query" yaml:"query"`
	GeneratedAt   time.Time       `json:"generated_at" yaml:"generated_at"`
	Summary       string          `json:"summary" yaml:"summary"`
	TotalProducts int             `json:"total_products" yaml:"total_products"`
	PriceRange    PriceRange      `json:"price_range" yaml:"price_range"`
	Products      []ProductRecord `json:"products" yaml:"products"`
	Sites         []SiteOutcome   `json:"sites" yaml:"sites"`
}

// Trend is one market movement with the service's confidence in it.
type Trend struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
}

// MarketIntelReport is the synthesized market picture for a product.
type MarketIntelReport struct {
	ProductCategory   string    `json:"product_category" yaml:"product_category"`
	LastUpdated       time.Time `json:"last_updated" yaml:"last_updated"`
	Trends            []Trend   `json:"trends" yaml:"trends"`
	SupplyChainStatus string    `json:"supply_chain_status" yaml:"supply_chain_status"`
	PriceForecast     string    `json:"price_forecast" yaml:"price_forecast"`
	KeyManufacturers  []string  `json:"key_manufacturers" yaml:"key_manufacturers"`
}

// Unknown marks a context field the user did not supply.
const Unknown = "unknown"

// IntelQuery is a product plus optional purchasing context.
type IntelQuery struct {
	ProductName  string
	Category     string
	Manufacturer string
	Price        string
	Vendor       string
}

// Prompt composes the contextual query. Missing fields appear as
// "unknown" so the service always sees every field.
func (q IntelQuery) Prompt() string {
	orUnknown := func(s string) string {
		if s = strings.TrimSpace(s); s == "" {
			return Unknown
		}
		return s
	}
	return fmt.Sprintf(
		"Analyze market intelligence for %s in category %s.\nCurrent manufacturer: %s\nCurrent price: %s\nCurrent vendor: %s",
		orUnknown(q.ProductName), orUnknown(q.Category), orUnknown(q.Manufacturer), orUnknown(q.Price), orUnknown(q.Vendor),
	)
}

// ImageResult is what the images command reports.
type ImageResult struct {
	ProductName string     `json:"product_name" yaml:"product_name"`
	Website     string     `json:"website" yaml:"website"`
	Images      []ImageRef `json:"images" yaml:"images"`
}

// DocumentType tells the compliance checker what kind of document it is
// checking against.
type DocumentType int

const (
	DocGeneralSpecification DocumentType = iota
	DocRegulatoryStandard
	DocVendorCertificate
	DocInternalPolicy
)

func (t DocumentType) Valid() bool {
	return t >= DocGeneralSpecification && t <= DocInternalPolicy
}

func (t DocumentType) String() string {
	switch t {
	case DocGeneralSpecification:
		return "general specification"
	case DocRegulatoryStandard:
		return "regulatory standard"
	case DocVendorCertificate:
		return "vendor certificate"
	case DocInternalPolicy:
		return "internal policy"
	default:
		return fmt.Sprintf("DocumentType(%d)", int(t))
	}
}

// DocumentStatus is the state of a compliance document.
type DocumentStatus string

const (
	StatusUploading DocumentStatus = "uploading"
	StatusReady     DocumentStatus = "ready"
	StatusFailed    DocumentStatus = "failed"
)

// ComplianceDocument is a document registered with the extraction service.
// Later operations refer to it only through FileID.
type ComplianceDocument struct {
	FileID string         `json:"file_id" yaml:"file_id"`
	Path   string         `json:"path" yaml:"path"`
	Type   DocumentType   `json:"type" yaml:"type"`
	Status DocumentStatus `json:"status" yaml:"status"`
}

// ComplianceResult is the verdict for one product.
type ComplianceResult struct {
	ProductName string `json:"product_name" yaml:"product_name"`
	Compliant   bool   `json:"compliant" yaml:"compliant"`
	Explanation string `json:"explanation" yaml:"explanation"`
	// Error is set when the check itself failed rather than the product.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ComplianceReport wraps a batch of results with the document they were
// checked against.
type ComplianceReport struct {
	RunID        string             `json:"run_id" yaml:"run_id"`
	FileID       string             `json:"file_id" yaml:"file_id"`
	DocumentType string             `json:"document_type" yaml:"document_type"`
	GeneratedAt  time.Time          `json:"generated_at" yaml:"generated_at"`
	Results      []ComplianceResult `json:"results" yaml:"results"`
}
