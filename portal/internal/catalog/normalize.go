package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// statusTable maps localized status phrases to canonical status codes. Whole entries
// match the entire trimmed query, words are replaced in place inside a longer query.
type statusTable struct {
	whole map[string]string
	words map[string]string
}

func inflect(code, stem string, endings ...string) map[string]string {
	m := map[string]string{stem: code}
	for _, e := range endings {
		m[stem+e] = code
	}
	return m
}

func merge(ms ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

var bookingStatuses = statusTable{
	whole: map[string]string{
		"выдано":        "ISSUED",
		"выдан":         "ISSUED",
		"выдача":        "ISSUED",
		"выдано.":       "ISSUED",
		"забронировано": "RESERVED",
		"бронь":         "RESERVED",
		"резерв":        "RESERVED",
		"ожидает":       "PENDING",
		"в ожидании":    "PENDING",
		"ожидание":      "PENDING",
		"отменено":      "CANCELLED",
		"отмена":        "CANCELLED",
		"отменён":       "CANCELLED",
	},
	words: map[string]string{
		"выдано":        "ISSUED",
		"забронировано": "RESERVED",
		"ожидает":       "PENDING",
		"отменено":      "CANCELLED",
	},
}

// Participles keep the short single-н spellings and add the full -нный forms.
var issuanceWords = merge(
	inflect("OPEN", "открыт", "а", "о", "ые", "ый", "ая", "ое"),
	inflect("OVERDUE", "просрочен", "о", "а", "ые", "ый", "ный", "ные", "ная", "ное"),
	map[string]string{"просрочка": "OVERDUE"},
	inflect("RETURNED", "возвращен", "о", "а", "ые", "ый", "ный", "ные", "ная", "ное"),
	inflect("RETURNED", "возвращён", "о", "а", "ный", "ные", "ная", "ное"),
	map[string]string{"возврат": "RETURNED", "вернули": "RETURNED"},
)

var issuanceStatuses = statusTable{whole: issuanceWords, words: issuanceWords}

// NormalizeBookingQuery turns a booking search string into a backend query: a
// recognised status phrase becomes its code, other text keeps its status words
// replaced by codes.
func NormalizeBookingQuery(q string) string {
	return bookingStatuses.normalize(q)
}

func NormalizeIssuanceQuery(q string) string {
	return issuanceStatuses.normalize(q)
}

func (t statusTable) normalize(q string) string {
	raw := strings.TrimSpace(q)
	if raw == "" {
		return ""
	}
	if code, ok := t.whole[strings.ToLower(raw)]; ok {
		return code
	}
	return replaceWords(raw, t.words)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// replaceWords substitutes every maximal run of word runes whose lowercase form is a
// key of words. Runs are Unicode aware, so Cyrillic letters never act as boundaries.
func replaceWords(s string, words map[string]string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	flush := func(end int) {
		word := s[start:end]
		if code, ok := words[strings.ToLower(word)]; ok {
			b.WriteString(code)
		} else {
			b.WriteString(word)
		}
		start = -1
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
		} else {
			if start >= 0 {
				flush(i)
			}
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	if start >= 0 {
		flush(len(s))
	}
	return b.String()
}
