package main

import (
	"os"
	"strings"
)

// Storefront locale codes accepted by the promotions backend and the
// store URLs ("en-US" style). Anything unrecognized falls back to en-US.
const defaultLocale = "en-US"

var knownLocales = map[string]bool{
	"en-US":   true,
	"de":      true,
	"es-ES":   true,
	"es-MX":   true,
	"fr":      true,
	"it":      true,
	"ja":      true,
	"ko":      true,
	"pl":      true,
	"pt-BR":   true,
	"ru":      true,
	"th":      true,
	"tr":      true,
	"zh-CN":   true,
	"zh-Hant": true,
}

// DetectSystemLocale maps the user's system locale to a storefront locale
// code. Environment variables take the POSIX "en_US.UTF-8" form.
func DetectSystemLocale() string {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		locale := os.Getenv(env)
		if locale == "" {
			continue
		}
		if code := storefrontLocale(locale); code != "" {
			return code
		}
	}
	return defaultLocale
}

// storefrontLocale normalizes a POSIX locale string ("pt_BR.UTF-8") into a
// storefront code ("pt-BR"), or "" when nothing usable is in it.
func storefrontLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}

	// Strip charset suffix and swap the separator.
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")

	if knownLocales[locale] {
		return locale
	}

	// Try the bare language tag ("fr-CA" -> "fr").
	if i := strings.IndexByte(locale, '-'); i >= 0 {
		lang := locale[:i]
		if knownLocales[lang] {
			return lang
		}
		if strings.EqualFold(lang, "en") {
			return defaultLocale
		}
	}

	return ""
}
