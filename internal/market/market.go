package market

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Marketplace identifies one of the two compared sales channels.
type Marketplace string

const (
	// Amazon is marketplace A, the fee-charging side by default.
	Amazon Marketplace = "amazon"
	// BestBuy is marketplace B.
	BestBuy Marketplace = "bestbuy"
)

// ErrUnknownMarketplace is returned when a name or URL maps to neither marketplace.
var ErrUnknownMarketplace = errors.New("unknown marketplace")

// All lists the marketplaces in A, B order.
var All = []Marketplace{Amazon, BestBuy}

// Valid reports whether m is a known marketplace.
func (m Marketplace) Valid() bool {
	return m == Amazon || m == BestBuy
}

// Other returns the opposite marketplace.
func (m Marketplace) Other() Marketplace {
	if m == Amazon {
		return BestBuy
	}
	return Amazon
}

func (m Marketplace) String() string { return string(m) }

// Parse converts a configured name into a Marketplace.
func Parse(name string) (Marketplace, error) {
	m := Marketplace(strings.ToLower(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMarketplace, name)
	}
	return m, nil
}

// Detector maps product URLs to marketplaces by host suffix.
type Detector struct {
	hosts map[Marketplace]string
}

// NewDetector builds a detector; empty hosts fall back to amazon.com / bestbuy.com.
func NewDetector(hosts map[Marketplace]string) *Detector {
	d := &Detector{hosts: map[Marketplace]string{
		Amazon:  "amazon.com",
		BestBuy: "bestbuy.com",
	}}
	for m, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			d.hosts[m] = h
		}
	}
	return d
}

// Detect returns the marketplace serving rawURL.
func (d *Detector) Detect(rawURL string) (Marketplace, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownMarketplace, rawURL)
	}
	host := strings.ToLower(u.Hostname())
	for _, m := range All {
		suffix := d.hosts[m]
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMarketplace, rawURL)
}
