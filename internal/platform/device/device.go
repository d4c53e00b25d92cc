// Package device turns raw User-Agent strings into short labels for attempt
// telemetry. Labels are descriptive only and never used in a decision.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknown = "Unknown Device"

// Info is the parsed view of a User-Agent.
type Info struct {
	Label     string
	Mobile    bool
	Automated bool
}

// Describe parses userAgent into a "Browser on OS" label plus coarse flags.
// Mobile clients are labelled with their platform (e.g. "Safari on iPhone").
func Describe(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Label: unknown}
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	return Info{
		Label:     strings.TrimSpace(browser + " on " + os),
		Mobile:    ua.Mobile(),
		Automated: ua.Bot(),
	}
}

// Label is shorthand for Describe(userAgent).Label.
func Label(userAgent string) string {
	return Describe(userAgent).Label
}
