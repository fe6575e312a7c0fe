// Package translit renders Tamil script in Latin letters so that names and
// places can be searched and exported alongside English records.
package translit

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Veraticus/deedscan/internal/model"
)

const virama = '்'

var vowels = map[rune]string{
	'அ': "a", 'ஆ': "aa", 'இ': "i", 'ஈ': "ee", 'உ': "u", 'ஊ': "oo",
	'எ': "e", 'ஏ': "ae", 'ஐ': "ai", 'ஒ': "o", 'ஓ': "o", 'ஔ': "au",
	'ஃ': "h",
}

// consonants without their inherent vowel
var consonants = map[rune]string{
	'க': "k", 'ங': "ng", 'ச': "ch", 'ஞ': "ny", 'ட': "t", 'ண': "n",
	'த': "th", 'ந': "n", 'ப': "p", 'ம': "m", 'ய': "y", 'ர': "r",
	'ல': "l", 'வ': "v", 'ழ': "zh", 'ள': "l", 'ற': "r", 'ன': "n",
	'ஜ': "j", 'ஷ': "sh", 'ஸ': "s", 'ஹ': "h", 'ஶ': "sh",
}

var vowelSigns = map[rune]string{
	'ா': "aa", 'ி': "i", 'ீ': "ee", 'ு': "u", 'ூ': "oo",
	'ெ': "e", 'ே': "ae", 'ை': "ai", 'ொ': "o", 'ோ': "o", 'ௌ': "au",
	virama: "",
}

// IsTamil reports whether s contains any character from the Tamil block.
func IsTamil(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool { return unicode.Is(unicode.Tamil, r) })
}

// Transliterate converts Tamil characters to Latin letters and title-cases
// each word. Text without Tamil characters is returned unchanged.
// Unrecognized Tamil characters are kept as-is.
func Transliterate(s string) string {
	if !IsTamil(s) {
		return s
	}

	runes := []rune(s)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if base, ok := consonants[r]; ok {
			b.WriteString(base)
			if i+1 < len(runes) {
				if sign, ok := vowelSigns[runes[i+1]]; ok {
					b.WriteString(sign)
					i++
					continue
				}
			}
			b.WriteString("a")
			continue
		}
		if v, ok := vowels[r]; ok {
			b.WriteString(v)
			continue
		}
		if sign, ok := vowelSigns[r]; ok {
			b.WriteString(sign)
			continue
		}
		b.WriteRune(r)
	}

	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(b.String())
}

// TranslateRecord fills the Latin name fields from their native spelling
// where needed and transliterates location fields. Missing buyer or seller
// names become model.UnknownName.
func TranslateRecord(r model.ExtractedRecord) model.ExtractedRecord {
	r.BuyerName = latinName(r.BuyerName, r.BuyerNameNative)
	r.SellerName = latinName(r.SellerName, r.SellerNameNative)
	r.District = Transliterate(r.District)
	r.Village = Transliterate(r.Village)
	return r
}

// TranslateRecords applies TranslateRecord to every record.
func TranslateRecords(records []model.ExtractedRecord) []model.ExtractedRecord {
	out := make([]model.ExtractedRecord, len(records))
	for i, r := range records {
		out[i] = TranslateRecord(r)
	}
	return out
}

func latinName(latin, native string) string {
	if name := Transliterate(strings.TrimSpace(latin)); name != "" {
		return name
	}
	if native = strings.TrimSpace(native); native != "" {
		return Transliterate(native)
	}
	return model.UnknownName
}
