package api

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const wwwPrefix = "www."

// GenerateVariants expands a page URL into the ordered set of query forms the
// CDX index might have recorded it under. The input is always the first
// element; later forms broaden the match (www toggling, scheme-less, site root).
// A bare domain or scheme-less path only expands to scheme-less forms.
// Input that cannot be parsed as a URL yields just the input.
//
// Example: "https://example.com/products" ->
//
//	https://example.com/products
//	https://www.example.com/products
//	www.example.com/products
//	www.example.com
//	example.com/products
//	example.com
//	https://example.com
func GenerateVariants(rawURL string) []string {
	parsed, schemeless := parseTarget(rawURL)
	if parsed == nil {
		return []string{rawURL}
	}

	scheme := parsed.Scheme + "://"
	if schemeless {
		scheme = ""
	}
	host := parsed.Host
	path := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	seen := make(map[string]struct{})
	var variants []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}

	add(rawURL)

	// Toggle the www. prefix
	var altHost string
	if strings.HasPrefix(strings.ToLower(host), wwwPrefix) {
		altHost = host[len(wwwPrefix):]
	} else {
		altHost = wwwPrefix + host
	}
	if scheme != "" {
		add(scheme + altHost + path)
	}
	add(altHost + path)
	add(altHost)

	add(host + path)
	add(host)

	// The archive may only have indexed the site root
	if scheme != "" && path != "" && path != "/" {
		add(scheme + host)
	}

	return variants
}

// parseTarget parses an absolute URL, or a scheme-less one as if it were http.
// It returns nil when no host can be recovered.
func parseTarget(rawURL string) (parsed *url.URL, schemeless bool) {
	if rawURL == "" {
		return nil, false
	}
	schemeless = !strings.Contains(rawURL, "://")
	candidate := rawURL
	if schemeless {
		candidate = "http://" + rawURL
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, schemeless
}

// ExtractRootDomain extracts the root domain from a URL or hostname
// Uses publicsuffix to handle complex TLDs like .co.uk
// Examples:
//   - "https://playground.bfl.ai/" -> "bfl.ai"
//   - "test1.dev.pci.westcoast.acme.com" -> "acme.com"
//   - "bfl.ai" -> "bfl.ai"
func ExtractRootDomain(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty input")
	}

	if strings.Contains(input, "://") {
		parsed, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		input = parsed.Hostname()
	} else if i := strings.IndexAny(input, "/?"); i >= 0 {
		input = input[:i]
	}

	input = strings.TrimSuffix(input, ".")

	rootDomain, err := publicsuffix.EffectiveTLDPlusOne(input)
	if err != nil {
		return "", fmt.Errorf("failed to extract root domain: %w", err)
	}

	return rootDomain, nil
}
