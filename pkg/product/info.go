package product

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxDescriptionLength caps product descriptions, which on some pages
// run to whole essays about coin history.
const MaxDescriptionLength = 2000

// TruncateDescription caps a description at MaxDescriptionLength
// characters. The cut is made on a rune boundary, since descriptions
// carry fractions ("½ oz") and trademark signs.
func TruncateDescription(s string) string {
	if len(s) <= MaxDescriptionLength {
		return s
	}
	r := []rune(s)
	if len(r) <= MaxDescriptionLength {
		return s
	}
	return string(r[:MaxDescriptionLength])
}

// Availability is the stock state shown on a product page.
type Availability string

const (
	InStock      Availability = "In Stock"
	OutOfStock   Availability = "Out of Stock"
	PreOrder     Availability = "Pre-Order"
	SoldOut      Availability = "Sold Out"
	ComingSoon   Availability = "Coming Soon"
	Discontinued Availability = "Discontinued"
	Unknown      Availability = "Unknown"
)

// AvailabilityStates lists the states as they appear verbatim in page
// text, in the order they should be looked for.
var AvailabilityStates = []Availability{InStock, OutOfStock, PreOrder, SoldOut, ComingSoon, Discontinued}

var priceRegexp = regexp.MustCompile(`\$?([\d,]+\.?\d*)`)

// ParsePrice extracts a numeric amount from displayed price text like
// "$1,234.56". The second return is false when no amount was found.
func ParsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	m := priceRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatPrice renders an amount the way the site displays it.
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	// Insert thousands separators into the integer part.
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String() + frac
}

// Info has the metadata we are able to determine about a product,
// from its page or from the search API.
type Info struct {
	// the canonical URL of the product page
	URL  Ref    `json:"url"`
	Name string `json:"name,omitempty"`
	// the price as displayed, e.g. "$32.50"
	Price string `json:"price,omitempty"`
	// the price as a number, for sorting and change detection
	PriceNumeric float64      `json:"priceNumeric,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	SKU          string       `json:"sku,omitempty"`
	Availability Availability `json:"availability,omitempty"`
	Description  string       `json:"description,omitempty"`
	// the last time this product was fetched
	LastScraped time.Time `json:"scrapedAt,omitempty"`
}

// MarshalJSON returns the Info value in JSON (as bytes). It is
// implemented so that we can omit the `scrapedAt` value when it's
// zero, which would otherwise be tricky for consumers to detect.
func (i Info) MarshalJSON() ([]byte, error) {
	type InfoAlias Info // alias to shed this MarshalJSON implementation
	var ls string
	if !i.LastScraped.IsZero() {
		ls = i.LastScraped.UTC().Format(time.RFC3339Nano)
	}
	encode := struct {
		InfoAlias
		LastScraped string `json:"scrapedAt,omitempty"`
	}{InfoAlias(i), ls}
	return json.Marshal(encode)
}

// UnmarshalJSON populates an Info from JSON (as bytes). It's the
// companion to MarshalJSON above.
func (i *Info) UnmarshalJSON(b []byte) error {
	type InfoAlias Info
	unencode := struct {
		InfoAlias
		LastScraped string `json:"scrapedAt,omitempty"`
	}{}
	if err := json.Unmarshal(b, &unencode); err != nil {
		return err
	}
	*i = Info(unencode.InfoAlias)
	return decodeTime(unencode.LastScraped, &i.LastScraped)
}

func decodeTime(s string, t *time.Time) error {
	if s == "" {
		*t = time.Time{}
		return nil
	}
	var err error
	*t, err = time.Parse(time.RFC3339, s)
	return err
}

// Fingerprint summarises the fields whose change means the product
// needs watching more closely (cf. an image digest moving).
func (i Info) Fingerprint() string {
	return strconv.FormatFloat(i.PriceNumeric, 'f', 2, 64) + "|" + string(i.Availability)
}

// CatalogMetadata is the product information found for one scrape
// target (a category, or a search query).
//
// `Products` is indexed by entries of `URLs`. Note that `Products` may
// be partial (i.e. entries of `URLs` may not have a corresponding
// key); this indicates the product page was missing or unparseable
// when last visited.
type CatalogMetadata struct {
	URLs     []string        // all the product page URLs found for the target
	Products map[string]Info // indexed by `URLs`, but may not include keys for all entries
}

// FindProduct returns the Info for a ref if the catalog has it, and
// otherwise an Info carrying just the ref.
func (cm CatalogMetadata) FindProduct(ref Ref) Info {
	if info, ok := cm.Products[ref.String()]; ok {
		return info
	}
	return Info{URL: ref}
}

// NewerByScraped returns true if lhs should be sorted before rhs with
// regard to their scrape time descending.
func NewerByScraped(lhs, rhs *Info) bool {
	if lhs.LastScraped.Equal(rhs.LastScraped) {
		return lhs.URL.String() < rhs.URL.String()
	}
	return lhs.LastScraped.After(rhs.LastScraped)
}

// CheaperByPrice returns true if lhs should be sorted before rhs with
// regard to their numeric price ascending. Products without a price
// sort last.
func CheaperByPrice(lhs, rhs *Info) bool {
	if lhs.PriceNumeric == rhs.PriceNumeric {
		return lhs.URL.String() < rhs.URL.String()
	}
	if lhs.PriceNumeric == 0 {
		return false
	}
	if rhs.PriceNumeric == 0 {
		return true
	}
	return lhs.PriceNumeric < rhs.PriceNumeric
}

// Sort orders the given infos according to the `before` func.
func Sort(infos []Info, before func(a, b *Info) bool) {
	if before == nil {
		before = NewerByScraped
	}
	sort.Sort(&infoSort{infos: infos, before: before})
}

type infoSort struct {
	infos  []Info
	before func(a, b *Info) bool
}

func (s *infoSort) Len() int {
	return len(s.infos)
}

func (s *infoSort) Swap(i, j int) {
	s.infos[i], s.infos[j] = s.infos[j], s.infos[i]
}

func (s *infoSort) Less(i, j int) bool {
	return s.before(&s.infos[i], &s.infos[j])
}
