package validate

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/ppiankov/unearth/internal/model"
)

// AuthorityClassifier classifies the source of a URL submission into an
// authority tier
type AuthorityClassifier struct {
	domainMap    map[string]model.AuthorityTier
	primaryMap   map[string]bool
	secondaryMap map[string]bool
}

// NewAuthorityClassifier creates a new authority classifier
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	classifier := &AuthorityClassifier{
		domainMap:    make(map[string]model.AuthorityTier),
		primaryMap:   make(map[string]bool),
		secondaryMap: make(map[string]bool),
	}

	for host, tier := range config.DomainMap {
		classifier.domainMap[normalizeDomain(host)] = parseTierString(tier)
	}
	for _, domain := range config.PrimaryDomains {
		classifier.primaryMap[normalizeDomain(domain)] = true
	}
	for _, domain := range config.SecondaryDomains {
		classifier.secondaryMap[normalizeDomain(domain)] = true
	}

	return classifier
}

// Classify classifies a URL into an authority tier. Anything that is not an
// http(s) URL with a host is TierUnknown.
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.TierUnknown
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return model.TierUnknown
	}

	host := normalizeDomain(parsed.Hostname())
	if host == "" {
		return model.TierUnknown
	}

	// Explicit mappings win, first for the exact host, then for the
	// registrable domain
	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if site, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		if tier, ok := a.domainMap[site]; ok {
			return tier
		}
	}

	if matchesDomain(host, a.primaryMap) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondaryMap) {
		return model.TierSecondary
	}

	// Common suffixes that indicate institutional authority
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// matchesDomain reports whether host equals or is a subdomain of any entry
func matchesDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func normalizeDomain(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// parseTierString converts a tier string to AuthorityTier
func parseTierString(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
