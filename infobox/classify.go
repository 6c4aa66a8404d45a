package infobox

import (
	"regexp"
	"strconv"
	"strings"
)

// Classifier recognises one kind of value. Match reports whether text
// contains the pattern and, if so, returns the kind-specific fields. Kind,
// Raw and Extracted are filled in by [ClassifyWith].
type Classifier struct {
	Kind  Kind
	Match func(text string) (Value, bool)
}

// Classifiers is the default cascade in priority order. The first matching
// entry wins, so a percentage inside a currency string is a percentage.
var Classifiers = []Classifier{
	{Kind: KindPercentage, Match: MatchPercentage},
	{Kind: KindCurrency, Match: MatchCurrency},
	{Kind: KindNumber, Match: MatchNumber},
	{Kind: KindRank, Match: MatchRank},
	{Kind: KindDateRange, Match: MatchDateRange},
}

var (
	percentPattern   = regexp.MustCompile(`(\d+\.?\d*)%`)
	currencyPattern  = regexp.MustCompile(`(?i)([$¥€£])\s*([\d,.]+)\s*(万亿|万|亿|million|billion|trillion)?`)
	numberPattern    = regexp.MustCompile(`(?:^|[\s(])([\d,.]+)(?:[\s)]|$)`)
	rankPattern      = regexp.MustCompile(`(?i)第\s*([零〇一二两三四五六七八九十百千万亿\d]+)\s*名|rank\s*(\d+)|(\d+)(?:st|nd|rd|th)\s*place`)
	yearPattern      = regexp.MustCompile(`(?i)(?:\(|as of\s)(\d{4})\)?`)
	dateRangePattern = regexp.MustCompile(`(\d{1,2}\s+[A-Za-z]+\s*[-–]\s*\d{1,2}\s+[A-Za-z]+)`)
	leadingFloat     = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)`)
)

var currencyScale = map[string]float64{
	"million":  1e6,
	"billion":  1e9,
	"trillion": 1e12,
	"万":        1e4,
	"亿":        1e8,
	"万亿":       1e12,
}

// Classify runs text through the default cascade. Text is expected to be
// cleaned already; it is stored unchanged in the returned value's Raw.
func Classify(text string) Value {
	return ClassifyWith(text, Classifiers)
}

// ClassifyWith runs text through the given cascade, falling back to an
// unstructured text value.
func ClassifyWith(text string, cascade []Classifier) Value {
	for _, c := range cascade {
		if v, ok := c.Match(text); ok {
			v.Kind = c.Kind
			v.Raw = text
			v.Extracted = true
			return v
		}
	}
	return Value{
		Kind: KindText,
		Text: text,
		Year: AnnotatedYear(text),
		Raw:  text,
	}
}

// MatchPercentage matches "6.8%".
func MatchPercentage(text string) (Value, bool) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return Value{}, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Value{}, false
	}
	return Value{Number: n, Unit: "%"}, true
}

// MatchCurrency matches a currency symbol followed by an amount and an
// optional scale word, e.g. "$1.5 million" or "¥3万亿".
func MatchCurrency(text string) (Value, bool) {
	m := currencyPattern.FindStringSubmatch(text)
	if m == nil {
		return Value{}, false
	}
	n, ok := parseAmount(m[2])
	if !ok {
		return Value{}, false
	}
	unit := strings.ToLower(m[3])
	if scale, ok := currencyScale[unit]; ok {
		n *= scale
	}
	if unit == "" {
		unit = m[1]
	}
	return Value{Number: n, Currency: m[1], Unit: unit}, true
}

// MatchNumber matches a plain, optionally comma-grouped number standing on
// its own or in parentheses.
func MatchNumber(text string) (Value, bool) {
	m := numberPattern.FindStringSubmatch(text)
	if m == nil {
		return Value{}, false
	}
	n, ok := parseAmount(m[1])
	if !ok {
		return Value{}, false
	}
	return Value{Number: n}, true
}

// MaxRank is the largest rank MatchRank accepts. Larger figures are left
// as text.
const MaxRank = 1_000_000_000_000

// MatchRank matches "第十名", "第3名", "rank 4" and "2nd place".
func MatchRank(text string) (Value, bool) {
	m := rankPattern.FindStringSubmatch(text)
	if m == nil {
		return Value{}, false
	}
	var (
		rank int
		ok   bool
	)
	switch {
	case isDigits(m[1]):
		rank, ok = parseRank(m[1])
	case m[1] != "":
		rank, ok = ParseChineseNumber(m[1])
	case m[2] != "":
		rank, ok = parseRank(m[2])
	default:
		rank, ok = parseRank(m[3])
	}
	if !ok || rank > MaxRank {
		return Value{}, false
	}
	return Value{Rank: rank}, true
}

func parseRank(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MatchDateRange matches "1 April – 31 March". A year annotation elsewhere
// in the text is attached.
func MatchDateRange(text string) (Value, bool) {
	m := dateRangePattern.FindStringSubmatch(text)
	if m == nil {
		return Value{}, false
	}
	return Value{Text: m[1], Year: AnnotatedYear(text)}, true
}

// AnnotatedYear returns the year from a "(2023)" or "as of 2023"
// annotation, or 0.
func AnnotatedYear(text string) int {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	return year
}

// parseAmount drops thousands separators and parses the leading decimal
// number, so "1.2.3" reads as 1.2 and "." is rejected.
func parseAmount(s string) (float64, bool) {
	s = leadingFloat.FindString(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
