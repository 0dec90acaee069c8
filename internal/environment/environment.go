// Package environment derives a best-effort client snapshot from a
// User-Agent string and merges it with caller supplied overrides.
package environment

import (
	"regexp"

	"github.com/spec-kit/supportpilot/internal/domain"
)

type rule struct {
	pattern *regexp.Regexp
	value   string
}

var (
	mobilePattern = regexp.MustCompile(`(?i)Mobi|Android|iPhone|iPad`)

	// Order matters: Android UAs mention Linux, Edge UAs mention Chrome and Safari.
	osRules = []rule{
		{regexp.MustCompile(`(?i)Windows`), "Windows"},
		{regexp.MustCompile(`(?i)Android`), "Android"},
		{regexp.MustCompile(`(?i)iPhone|iPad|iPod`), "iOS"},
		{regexp.MustCompile(`(?i)Mac OS X`), "macOS"},
		{regexp.MustCompile(`(?i)Linux`), "Linux"},
	}
	browserRules = []rule{
		{regexp.MustCompile(`(?i)Edg/`), "Edge"},
		{regexp.MustCompile(`(?i)Chrome/`), "Chrome"},
		{regexp.MustCompile(`(?i)Firefox/`), "Firefox"},
		{regexp.MustCompile(`(?i)Safari/`), "Safari"},
	}
)

// Detect classifies userAgent. An empty userAgent yields an empty snapshot.
func Detect(userAgent string) domain.Environment {
	if userAgent == "" {
		return domain.Environment{}
	}

	env := domain.Environment{
		UserAgent:  userAgent,
		DeviceType: domain.DeviceTypeDesktop,
		OS:         firstMatch(osRules, userAgent),
		Browser:    firstMatch(browserRules, userAgent),
	}
	if mobilePattern.MatchString(userAgent) {
		env.DeviceType = domain.DeviceTypeMobile
	}
	return env
}

// Merge overlays every non-empty field of explicit onto detected.
func Merge(detected domain.Environment, explicit *domain.Environment) domain.Environment {
	if explicit == nil {
		return detected
	}
	merged := detected
	if explicit.Browser != "" {
		merged.Browser = explicit.Browser
	}
	if explicit.OS != "" {
		merged.OS = explicit.OS
	}
	if explicit.DeviceType != "" {
		merged.DeviceType = explicit.DeviceType
	}
	if explicit.UserAgent != "" {
		merged.UserAgent = explicit.UserAgent
	}
	return merged
}

func firstMatch(rules []rule, userAgent string) string {
	for _, r := range rules {
		if r.pattern.MatchString(userAgent) {
			return r.value
		}
	}
	return ""
}
