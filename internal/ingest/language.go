package ingest

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLanguage is returned for a language code outside the
// supported analyzer set.
var ErrUnsupportedLanguage = errors.New("unsupported ingestion language")

// SupportedLanguageCodes maps the language codes accepted for ingestion to
// their display names. The code selects the index-side language analyzer.
var SupportedLanguageCodes = map[string]string{
	"ar":      "Arabic",
	"hy":      "Armenian",
	"eu":      "Basque",
	"bg":      "Bulgarian",
	"ca":      "Catalan",
	"zh-Hans": "Chinese Simplified",
	"zh-Hant": "Chinese Traditional",
	"cs":      "Czech",
	"da":      "Danish",
	"nl":      "Dutch",
	"en":      "English",
	"fi":      "Finnish",
	"fr":      "French",
	"gl":      "Galician",
	"de":      "German",
	"el":      "Greek",
	"hi":      "Hindi",
	"hu":      "Hungarian",
	"id":      "Indonesian (Bahasa)",
	"ga":      "Irish",
	"it":      "Italian",
	"ja":      "Japanese",
	"ko":      "Korean",
	"lv":      "Latvian",
	"no":      "Norwegian",
	"fa":      "Persian",
	"pl":      "Polish",
	"pt-Br":   "Portuguese (Brazil)",
	"pt-Pt":   "Portuguese (Portugal)",
	"ro":      "Romanian",
	"ru":      "Russian",
	"es":      "Spanish",
	"sv":      "Swedish",
	"th":      "Thai",
	"tr":      "Turkish",
}

// ValidateLanguage accepts an empty code (no language analyzer) or a code
// present in SupportedLanguageCodes.
func ValidateLanguage(code string) error {
	if code == "" {
		return nil
	}
	if _, ok := SupportedLanguageCodes[code]; !ok {
		return fmt.Errorf("%w: %q (use a code like \"en\", or unset the language)", ErrUnsupportedLanguage, code)
	}
	return nil
}
