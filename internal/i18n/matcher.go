package i18n

import (
	"golang.org/x/text/language"
)

// Matcher picks the best site locale for an Accept-Language header.
type Matcher struct {
	locales  []string // matcher order, default first
	matcher  language.Matcher
	fallback string
}

// NewMatcher builds a matcher over the site locales. The default locale is
// the answer whenever nothing matches.
func NewMatcher(locales []string, fallback string) *Matcher {
	ordered := make([]string, 0, len(locales)+1)
	ordered = append(ordered, fallback)
	for _, l := range locales {
		if l != fallback {
			ordered = append(ordered, l)
		}
	}

	tags := make([]language.Tag, 0, len(ordered))
	kept := make([]string, 0, len(ordered))
	for _, l := range ordered {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		kept = append(kept, l)
	}

	return &Matcher{
		locales:  kept,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}
}

// Resolve returns the preferred site locale for acceptLanguage. q-values
// are honored; unparsable headers yield the default locale.
func (m *Matcher) Resolve(acceptLanguage string) string {
	if acceptLanguage == "" || len(m.locales) == 0 {
		return m.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return m.fallback
	}
	_, idx, conf := m.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(m.locales) {
		return m.fallback
	}
	return m.locales[idx]
}
