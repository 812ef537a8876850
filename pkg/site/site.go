package site

import (
	"encoding/json"
	"io/ioutil"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/ryanuber/go-glob"
)

// Defaults reproducing the silver.com profile.
const (
	DefaultBaseURL            = "https://www.silver.com"
	DefaultSearchSpringSiteID = "ey66qs"
	DefaultSearchEndpoint     = "https://api.searchspring.net/api/search/search.json"

	DefaultRPS           = 2.0
	DefaultBurst         = 4
	DefaultClientTimeout = Duration(30 * time.Second)
)

// Duration is a time.Duration that unmarshals from a string like
// "30s", so config files can be written by hand.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return errors.Errorf("invalid duration %q", string(b))
	}
}

// Target is something the daemon keeps fresh: either a category
// listing URL, or a search query answered by the search API. Exactly
// one of URL and Query is set.
type Target struct {
	// Name identifies the target in cache keys and the API; it must be
	// stable across restarts.
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Query string `json:"query,omitempty"`
}

// Config is the site scraping profile. Zero values are filled in with
// the silver.com defaults, so a config file only has to say what it
// wants to change.
type Config struct {
	BaseURL            string `json:"baseURL,omitempty"`
	SearchSpringSiteID string `json:"searchspringSiteID,omitempty"`
	SearchEndpoint     string `json:"searchEndpoint,omitempty"`

	// Requests per second and burst for the per-host rate limiter.
	RPS   float64 `json:"rps,omitempty"`
	Burst int     `json:"burst,omitempty"`

	// Timeout for individual page and API fetches.
	ClientTimeout Duration `json:"clientTimeout,omitempty"`

	// Forward proxy for all site traffic, e.g. a residential proxy
	// endpoint. Overridden by $SILVER_PROXY when that is set.
	ProxyURL string `json:"proxyURL,omitempty"`

	// Targets the daemon keeps warm.
	Targets []Target `json:"targets,omitempty"`

	// Glob patterns applied to product URLs found during catalog
	// walks; empty include means everything.
	IncludeURLs []string `json:"includeURLs,omitempty"`
	ExcludeURLs []string `json:"excludeURLs,omitempty"`
}

// Default returns the built-in silver.com profile, tracking the main
// silver category.
func Default() Config {
	c := Config{
		Targets: []Target{
			{Name: "silver-coins", URL: DefaultBaseURL + "/silver-coins/"},
		},
	}
	c.fillIn()
	return c
}

// Load reads a YAML (or JSON) config file and fills in defaults.
func Load(path string) (Config, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading site config %s", path)
	}
	var c Config
	if err := yaml.Unmarshal(bytes, &c); err != nil {
		return Config{}, errors.Wrapf(err, "parsing site config %s", path)
	}
	c.fillIn()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) fillIn() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.SearchSpringSiteID == "" {
		c.SearchSpringSiteID = DefaultSearchSpringSiteID
	}
	if c.SearchEndpoint == "" {
		c.SearchEndpoint = DefaultSearchEndpoint
	}
	if c.RPS == 0 {
		c.RPS = DefaultRPS
	}
	if c.Burst == 0 {
		c.Burst = DefaultBurst
	}
	if c.ClientTimeout == 0 {
		c.ClientTimeout = DefaultClientTimeout
	}
}

func (c Config) validate() error {
	seen := map[string]bool{}
	for _, t := range c.Targets {
		if t.Name == "" {
			return errors.New("target with no name in site config")
		}
		if seen[t.Name] {
			return errors.Errorf("duplicate target name %q in site config", t.Name)
		}
		seen[t.Name] = true
		if (t.URL == "") == (t.Query == "") {
			return errors.Errorf("target %q must set exactly one of url and query", t.Name)
		}
	}
	return nil
}

// FindTarget looks a target up by name.
func (c Config) FindTarget(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// AllowURL says whether a product URL passes the include/exclude glob
// patterns.
func (c Config) AllowURL(url string) bool {
	if len(c.IncludeURLs) > 0 {
		ok := false
		for _, pat := range c.IncludeURLs {
			if glob.Glob(pat, url) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, pat := range c.ExcludeURLs {
		if glob.Glob(pat, url) {
			return false
		}
	}
	return true
}
