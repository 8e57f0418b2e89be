// Package lang validates and names the ISO 639-1 codes sent to the speech
// engine. Codes may carry a region ("pt-BR"); the engine only sees the base.
package lang

import (
	"fmt"
	"strings"
)

// baseNames lists the base languages the engine transcribes, with the
// English name printed in progress lines.
var baseNames = map[string]string{
	"af": "Afrikaans",
	"ar": "Arabic",
	"bg": "Bulgarian",
	"bn": "Bengali",
	"ca": "Catalan",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"et": "Estonian",
	"fa": "Persian",
	"fi": "Finnish",
	"fr": "French",
	"gu": "Gujarati",
	"he": "Hebrew",
	"hi": "Hindi",
	"hr": "Croatian",
	"hu": "Hungarian",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"jv": "Javanese",
	"kn": "Kannada",
	"ko": "Korean",
	"lt": "Lithuanian",
	"lv": "Latvian",
	"mk": "Macedonian",
	"ml": "Malayalam",
	"mr": "Marathi",
	"ms": "Malay",
	"nl": "Dutch",
	"no": "Norwegian",
	"pa": "Punjabi",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"sr": "Serbian",
	"su": "Sundanese",
	"sv": "Swedish",
	"sw": "Swahili",
	"ta": "Tamil",
	"te": "Telugu",
	"th": "Thai",
	"tl": "Tagalog",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"ur": "Urdu",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

// Regional variants with a name of their own. Other regions print the base name.
var localeNames = map[string]string{
	"en-gb": "British English",
	"en-us": "American English",
	"es-mx": "Mexican Spanish",
	"fr-ca": "Canadian French",
	"pt-br": "Brazilian Portuguese",
	"pt-pt": "European Portuguese",
	"zh-cn": "Simplified Chinese",
	"zh-tw": "Traditional Chinese",
}

// Normalize trims a code and lowercases it, with "_" turned into "-".
// "pt_BR", " PT-br " and "pt-br" all become "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// split returns the base and region of a normalized code.
func split(normalized string) (base, region string, hasRegion bool) {
	return strings.Cut(normalized, "-")
}

// Validate reports whether code names a supported language. An empty code
// is valid and leaves detection to the engine.
func Validate(code string) error {
	if code == "" {
		return nil
	}
	base, region, hasRegion := split(Normalize(code))
	if _, ok := baseNames[base]; !ok {
		return fmt.Errorf("%w: %q (use ISO 639-1 codes like 'id', 'en', 'pt-BR')", ErrInvalid, code)
	}
	if hasRegion && region == "" {
		return fmt.Errorf("%w: %q has an empty region", ErrInvalid, code)
	}
	return nil
}

// BaseCode returns the ISO 639-1 part of code: "pt-BR" -> "pt".
func BaseCode(code string) string {
	base, _, _ := split(Normalize(code))
	return base
}

// DisplayName returns the English name of code, as printed when a
// transcription starts ("Transcribing abc123 (Indonesian)...").
// Unknown codes are returned unchanged.
func DisplayName(code string) string {
	normalized := Normalize(code)
	if name, ok := localeNames[normalized]; ok {
		return name
	}
	base, _, _ := split(normalized)
	if name, ok := baseNames[base]; ok {
		return name
	}
	return code
}
