package site

// GithubRepository is where the Muffin sources live.
const GithubRepository = "https://github.com/little-inferno/muffin-original"

// Default returns the Muffin website configuration. Load layers the site
// file on top of it, so a site file only needs the keys it changes.
func Default() Config {
	return Config{
		Title:   "Muffin",
		Tagline: "Scala framework for your mattermost bots",
		Favicon: "img/logo.png",
		URL:     "https://little-inferno.github.io",
		BaseURL: "/muffin/",

		OrganizationName: "scalapatisserie",
		ProjectName:      "muffin",

		OnBrokenLinks:         PolicyThrow,
		OnBrokenMarkdownLinks: PolicyWarn,

		I18n: I18n{
			DefaultLocale: "en",
			Locales:       []string{"en", "ru"},
		},
		Docs: Docs{
			Path:          "../docs",
			RouteBasePath: "/",
			SidebarPath:   "sidebars.yaml",
		},
		Blog: false,
		Theme: Theme{
			CustomCSS: "css/custom.css",
		},
		ThemeConfig: ThemeConfig{
			Image: "img/logo.png",
			Navbar: Navbar{
				Title: "Muffin",
				Logo:  Logo{Alt: "Muffin logo", Src: "img/logo.png"},
				Items: []NavItem{
					{
						Href:      GithubRepository,
						Position:  "right",
						ClassName: "header-github-link",
						AriaLabel: "github repository",
					},
				},
			},
			Footer: Footer{
				Style:     "light",
				Copyright: "Copyright © 2022 - {{year}} Muffin<br>Built with muffin-site.",
			},
			Prism: Prism{Theme: "github", DarkTheme: "dracula"},
		},
		Homepage: Homepage{
			Buttons: []Link{
				{Label: "Docs", LabelKey: "home.docs", To: "/getting-started/installation", ClassName: "button button--secondary button--lg"},
				{Label: "Github", LabelKey: "home.github", To: GithubRepository, ClassName: "button button--secondary button--lg"},
			},
			Badges: []Badge{
				{Alt: "Build status", Src: "https://github.com/little-inferno/muffin/workflows/CI/badge.svg"},
				{Alt: "Maven Central", Src: "https://img.shields.io/maven-central/v/space.scalapatisserie/muffin-core_3"},
			},
		},
	}
}
