package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// sanitizeInput removes null bytes and other invisible control characters from input
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		// Keep printable characters and normal whitespace (space, tab, newline)
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') {
			return -1
		}
		return r
	}, s)
}

// validateTarget accepts anything that looks like a host, with or without a scheme
func validateTarget(s string) error {
	s = strings.TrimSpace(sanitizeInput(s))
	if s == "" {
		return errors.New("URL is required")
	}
	if strings.ContainsAny(s, " \t") {
		return errors.New("URL must not contain spaces")
	}
	host := s
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if host == "" || !strings.Contains(host, ".") {
		return errors.New("expected a domain such as example.com")
	}
	return nil
}

// PromptForURL asks for the page to analyze
func PromptForURL() (string, error) {
	var input string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Page to analyze").
				Description("Full URL or bare domain (e.g., https://example.com/pricing)").
				Placeholder("https://example.com/").
				Value(&input).
				Validate(validateTarget),
		),
	).WithTheme(NewAppTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return strings.TrimSpace(sanitizeInput(input)), nil
}
