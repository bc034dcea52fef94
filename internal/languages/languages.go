// Package languages lists the language codes with offline model support.
package languages

import "sort"

// Auto requests source language detection.
const Auto = "auto"

var names = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ar": "Arabic",
	"hi": "Hindi",
	"bg": "Bulgarian",
	"ca": "Catalan",
	"cs": "Czech",
	"et": "Estonian",
	"fi": "Finnish",
	"hu": "Hungarian",
	"is": "Icelandic",
	"lt": "Lithuanian",
	"lv": "Latvian",
	"nl": "Dutch",
	"pl": "Polish",
	"sk": "Slovak",
	"sl": "Slovenian",
	"uk": "Ukrainian",
	Auto: "Detect Language",
}

// Name returns the display name for code, or code itself when unknown.
func Name(code string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// IsSupported reports whether code is a known language or Auto.
func IsSupported(code string) bool {
	_, ok := names[code]
	return ok
}

// Codes returns the concrete language codes, sorted, without Auto.
func Codes() []string {
	out := make([]string, 0, len(names)-1)
	for code := range names {
		if code != Auto {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
