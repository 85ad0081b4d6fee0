// Package i18n resolves locales and translates the handful of UI strings the
// generated pages carry. Page content is localized by the docs loader.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// builtin holds the UI strings shipped with the generator.
var builtin = map[string]map[string]string{
	"en": {
		"home.docs":        "Docs",
		"home.github":      "Github",
		"nav.locale":       "Language",
		"nav.github":       "GitHub repository",
		"doc.sidebar":      "Docs sidebar",
		"doc.edit":         "Edit this page",
		"doc.previous":     "Previous",
		"doc.next":         "Next",
		"notfound.title":   "Page Not Found",
		"notfound.message": "We could not find what you were looking for.",
		"notfound.home":    "Back to the homepage",
	},
	"ru": {
		"home.docs":        "Документация",
		"home.github":      "Github",
		"nav.locale":       "Язык",
		"nav.github":       "Репозиторий на GitHub",
		"doc.sidebar":      "Оглавление",
		"doc.edit":         "Редактировать страницу",
		"doc.previous":     "Назад",
		"doc.next":         "Далее",
		"notfound.title":   "Страница не найдена",
		"notfound.message": "К сожалению, мы не смогли найти запрашиваемую страницу.",
		"notfound.home":    "Вернуться на главную",
	},
}

// Bundle translates UI keys. Lookups fall back from the requested locale to
// the default locale, then to built-in English, then to the key itself.
type Bundle struct {
	dict     map[string]map[string]string
	fallback string
}

// NewBundle merges the built-in strings with per-locale overrides.
func NewBundle(fallback string, overrides map[string]map[string]string) *Bundle {
	b := &Bundle{dict: map[string]map[string]string{}, fallback: fallback}
	for lang, m := range builtin {
		b.dict[lang] = copyMap(m)
	}
	for lang, m := range overrides {
		if b.dict[lang] == nil {
			b.dict[lang] = map[string]string{}
		}
		for k, v := range m {
			b.dict[lang][k] = v
		}
	}
	return b
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// T returns the translation of key in lang.
func (b *Bundle) T(lang, key string) string {
	for _, l := range []string{lang, b.fallback, "en"} {
		if m, ok := b.dict[l]; ok {
			if v, ok := m[key]; ok {
				return v
			}
		}
	}
	return key
}

// Has reports whether lang defines key itself, without fallback.
func (b *Bundle) Has(lang, key string) bool {
	_, ok := b.dict[lang][key]
	return ok
}

// DisplayName is the native name of a locale ("Русский" for ru), used when
// the site does not set a label.
func DisplayName(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return locale
}
