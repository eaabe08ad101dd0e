package source

import (
	_ "embed"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog lists the sources a run may query, in configured order.
type Catalog struct {
	Sources []Entry `yaml:"sources"`
}

// Entry configures one source.
type Entry struct {
	Name       string  `yaml:"name"`
	Enabled    *bool   `yaml:"enabled,omitempty"` // nil means enabled
	BaseURL    string  `yaml:"base_url,omitempty"`
	RatePerSec float64 `yaml:"rate_per_sec,omitempty"`
	Token      string  `yaml:"token,omitempty"`
}

// IsEnabled reports whether the entry takes part in runs.
func (e Entry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

type factory struct {
	defaultURL    string
	requiresToken bool
	build         func(c *Client, e Entry) Adapter
}

var factories = map[string]factory{
	MarketWatch: {marketWatchURL, false, func(c *Client, e Entry) Adapter { return NewMarketWatch(c, e.BaseURL) }},
	Zacks:       {zacksURL, false, func(c *Client, e Entry) Adapter { return NewZacks(c, e.BaseURL) }},
	TradingView: {tradingViewURL, false, func(c *Client, e Entry) Adapter { return NewTradingView(c, e.BaseURL) }},
	Investing:   {investingURL, false, func(c *Client, e Entry) Adapter { return NewInvesting(c, e.BaseURL) }},
	Benzinga:    {benzingaURL, true, func(c *Client, e Entry) Adapter { return NewBenzinga(c, e.BaseURL, e.Token) }},
}

// DefaultCatalog returns the built-in catalog of the five bundled sources.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, eris.Wrap(err, "source: parse catalog")
	}

	seen := make(map[string]bool, len(cat.Sources))
	for _, e := range cat.Sources {
		if _, ok := factories[e.Name]; !ok {
			return nil, eris.Errorf("source: catalog names unknown source %q", e.Name)
		}
		if seen[e.Name] {
			return nil, eris.Errorf("source: catalog lists %q twice", e.Name)
		}
		seen[e.Name] = true
	}
	return &cat, nil
}

// Build registers an adapter for every enabled catalog entry, in catalog
// order. tokens override the catalog's per-source tokens. Entries that need
// a token and have none are skipped.
func Build(cat *Catalog, client *Client, tokens map[string]string) *Registry {
	reg := NewRegistry()
	for _, e := range cat.Sources {
		if !e.IsEnabled() {
			zap.L().Debug("source disabled in catalog", zap.String("source", e.Name))
			continue
		}
		f := factories[e.Name]
		if tok := tokens[e.Name]; tok != "" {
			e.Token = tok
		}
		if f.requiresToken && e.Token == "" {
			zap.L().Warn("source skipped: api token not configured", zap.String("source", e.Name))
			continue
		}
		if e.RatePerSec > 0 {
			rawURL := e.BaseURL
			if rawURL == "" {
				rawURL = f.defaultURL
			}
			if u, err := url.Parse(rawURL); err == nil {
				client.SetHostRate(u.Host, e.RatePerSec)
			}
		}
		reg.Register(f.build(client, e))
	}
	return reg
}
