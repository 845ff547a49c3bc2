package numeric

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidNumber is returned when a string is not a recognizable figure.
var ErrInvalidNumber = errors.New("invalid number")

// Locale is a hint for figures whose decimal mark is ambiguous, such as "1.234".
type Locale string

const (
	// LocaleEN uses '.' as the decimal mark and ',' for grouping.
	LocaleEN Locale = "en"
	// LocaleEU uses ',' as the decimal mark and '.' for grouping.
	LocaleEU Locale = "eu"
)

// decimalMark returns the decimal separator of the locale.
func (l Locale) decimalMark() byte {
	if l == LocaleEU {
		return ','
	}
	return '.'
}

// maxConceptWords is the number of words before a figure kept as its label.
const maxConceptWords = 3

// Number is a figure found in text.
type Number struct {
	// Raw is the figure as written, e.g. "$1,234.50".
	Raw string
	// Value is the normalized value. Percentages keep their stated value (12.5 for "12.5%").
	Value float64
	// Percent is true when the figure ends with '%'.
	Percent bool
	// Currency is the currency symbol, if any.
	Currency string
	// Concept is the lower-cased label immediately before the figure, e.g. "total".
	Concept string
	// Offset is the byte offset of the figure in the text.
	Offset int
}

var numberPattern = regexp.MustCompile(`([-\x{2212}])?([$€£¥])?(\d(?:[\d.,]*\d)?)(\s?%)?`)

// ExtractNumbers returns every figure in text, in order of appearance.
// Digits glued to letters, such as "Q3" or "3rd", are not figures.
func ExtractNumbers(text string, locale Locale) []Number {
	var numbers []Number
	for _, loc := range numberPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isWordRune(lastRune(text[:start])) {
			continue
		}
		if end < len(text) && unicode.IsLetter(firstRune(text[end:])) {
			continue
		}

		raw := text[start:end]
		value, err := Normalize(raw, locale)
		if err != nil {
			continue
		}

		n := Number{
			Raw:     raw,
			Value:   value,
			Percent: loc[8] >= 0,
			Concept: conceptBefore(text[:start]),
			Offset:  start,
		}
		if loc[4] >= 0 {
			n.Currency = text[loc[4]:loc[5]]
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// Normalize converts a written figure to a float64.
//
// Separator rules:
//   - both '.' and ',' present: the last one is the decimal mark
//   - one separator repeated: it groups thousands
//   - one separator followed by exactly three digits: ambiguous, the locale decides
//   - one separator followed by any other digit count: it is the decimal mark
func Normalize(raw string, locale Locale) (float64, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative, s = true, s[1:]
	} else if strings.HasPrefix(s, "−") {
		negative, s = true, s[len("−"):]
	}
	s = strings.TrimLeft(s, "$€£¥ ")
	s = strings.TrimRight(s, "% ")
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
		}
	}

	decimal, err := decimalSeparator(s, locale)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, raw)
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == decimal:
			b.WriteByte('.')
		case c == '.' || c == ',':
		default:
			b.WriteByte(c)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// decimalSeparator returns the byte acting as decimal mark in s, or 0 if none.
func decimalSeparator(s string, locale Locale) (byte, error) {
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")

	switch {
	case dots == 0 && commas == 0:
		return 0, nil
	case dots > 0 && commas > 0:
		last := s[strings.LastIndexAny(s, ".,")]
		if strings.Count(s, string(last)) > 1 {
			return 0, ErrInvalidNumber
		}
		return last, nil
	}

	sep := byte('.')
	if commas > 0 {
		sep = ','
	}
	if dots+commas > 1 {
		return 0, nil
	}

	idx := strings.IndexByte(s, sep)
	intPart, fracPart := s[:idx], s[idx+1:]
	if len(fracPart) != 3 || intPart == "0" || intPart == "" {
		return sep, nil
	}
	if locale.decimalMark() == sep {
		return sep, nil
	}
	return 0, nil
}

// Format writes v with thousands grouping and the given number of decimals
// in the conventions of locale.
func Format(v float64, decimals int, locale Locale) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	group, mark := ",", "."
	if locale == LocaleEU {
		group, mark = ".", ","
	}

	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteString(mark)
		b.WriteString(fracPart)
	}
	return b.String()
}

// conceptBefore returns up to maxConceptWords letter-only words that end
// right before a figure on the same line, lower-cased.
func conceptBefore(prefix string) string {
	if i := strings.LastIndexByte(prefix, '\n'); i >= 0 {
		prefix = prefix[i+1:]
	}
	prefix = strings.TrimRightFunc(prefix, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":=-–—", r)
	})

	fields := strings.Fields(prefix)
	var words []string
	for i := len(fields) - 1; i >= 0 && len(words) < maxConceptWords; i-- {
		// "Summary: Total 100" is labelled "total", not "summary total".
		if !isLetterWord(fields[i]) {
			break
		}
		words = append([]string{strings.ToLower(fields[i])}, words...)
	}
	return strings.Join(words, " ")
}

func isLetterWord(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
