// Package site holds the static description of the website: metadata,
// locales, docs layout, theme, navbar, footer and the homepage hero. A
// Config is built once per build and handed to renderers by value; nothing
// in the generator reads it from ambient state.
package site

// Broken link policies, shared by onBrokenLinks and onBrokenMarkdownLinks.
const (
	PolicyIgnore = "ignore"
	PolicyLog    = "log"
	PolicyWarn   = "warn"
	PolicyThrow  = "throw"
)

// Config is the site configuration. YAML keys follow the Docusaurus
// configuration so an existing docusaurus.config.js translates key by key.
type Config struct {
	Title   string `yaml:"title"`
	Tagline string `yaml:"tagline"`
	Favicon string `yaml:"favicon"`
	URL     string `yaml:"url"`
	BaseURL string `yaml:"baseUrl"`

	OrganizationName string `yaml:"organizationName"`
	ProjectName      string `yaml:"projectName"`

	OnBrokenLinks         string `yaml:"onBrokenLinks"`
	OnBrokenMarkdownLinks string `yaml:"onBrokenMarkdownLinks"`

	I18n        I18n        `yaml:"i18n"`
	Docs        Docs        `yaml:"docs"`
	Blog        bool        `yaml:"blog"`
	Theme       Theme       `yaml:"theme"`
	ThemeConfig ThemeConfig `yaml:"themeConfig"`
	Homepage    Homepage    `yaml:"homepage"`

	// Translations overrides UI strings per locale, see package i18n for keys.
	Translations map[string]map[string]string `yaml:"translations,omitempty"`
}

type I18n struct {
	DefaultLocale string                  `yaml:"defaultLocale"`
	Locales       []string                `yaml:"locales"`
	LocaleConfigs map[string]LocaleConfig `yaml:"localeConfigs,omitempty"`
}

type LocaleConfig struct {
	Label     string `yaml:"label,omitempty"`
	Direction string `yaml:"direction,omitempty"` // "ltr" | "rtl"
	HTMLLang  string `yaml:"htmlLang,omitempty"`
}

// Docs locates the markdown sources. Path and SidebarPath are relative to
// the website source directory.
type Docs struct {
	Path          string `yaml:"path"`
	RouteBasePath string `yaml:"routeBasePath"`
	SidebarPath   string `yaml:"sidebarPath"`
}

type Theme struct {
	CustomCSS string `yaml:"customCss"`
}

type ThemeConfig struct {
	Image  string `yaml:"image"`
	Navbar Navbar `yaml:"navbar"`
	Footer Footer `yaml:"footer"`
	Prism  Prism  `yaml:"prism"`
}

type Navbar struct {
	Title string    `yaml:"title"`
	Logo  Logo      `yaml:"logo"`
	Items []NavItem `yaml:"items"`
}

type Logo struct {
	Alt string `yaml:"alt"`
	Src string `yaml:"src"`
}

// NavItem is a navigation descriptor: a label, a target and a style class.
// Href is an absolute/external target, To a site-relative route.
type NavItem struct {
	Type      string `yaml:"type,omitempty"` // "" | "localeDropdown"
	Label     string `yaml:"label,omitempty"`
	Href      string `yaml:"href,omitempty"`
	To        string `yaml:"to,omitempty"`
	Position  string `yaml:"position,omitempty"` // "left" | "right"
	ClassName string `yaml:"className,omitempty"`
	AriaLabel string `yaml:"aria-label,omitempty"`
}

type Footer struct {
	Style     string `yaml:"style"`
	Copyright string `yaml:"copyright"`
}

// Prism is the syntax highlighting theme pair (light, dark).
type Prism struct {
	Theme     string `yaml:"theme"`
	DarkTheme string `yaml:"darkTheme"`
}

// Homepage describes the hero banner of the landing page.
type Homepage struct {
	Buttons []Link  `yaml:"buttons"`
	Badges  []Badge `yaml:"badges"`
}

// Link is a hero button. LabelKey, when set, is looked up in the locale
// bundle and Label is used as the fallback text.
type Link struct {
	Label     string `yaml:"label"`
	LabelKey  string `yaml:"labelKey,omitempty"`
	To        string `yaml:"to"`
	ClassName string `yaml:"className,omitempty"`
}

// Badge is a status image shown under the hero buttons.
type Badge struct {
	Alt string `yaml:"alt"`
	Src string `yaml:"src"`
}
