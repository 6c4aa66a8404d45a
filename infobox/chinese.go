package infobox

var chineseDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var chineseSmallUnits = map[rune]int{
	'十': 10, '百': 100, '千': 1000,
}

// MaxChineseNumber bounds the values [ParseChineseNumber] accepts.
const MaxChineseNumber = 1e16

// ChineseToNumber converts a Chinese numeral such as "二十三" or
// "一亿二千万" to an integer. ASCII digits are accepted in digit
// positions. A unit with no digit before it counts as one of that unit,
// so "十" is 10 and "万" is 10000. Unknown runes are ignored. Numerals
// above [MaxChineseNumber] yield 0.
func ChineseToNumber(s string) int {
	n, _ := ParseChineseNumber(s)
	return n
}

// ParseChineseNumber is ChineseToNumber reporting whether the numeral fits
// within [MaxChineseNumber].
func ParseChineseNumber(s string) (int, bool) {
	var result, section, digit int

	for _, r := range s {
		if d, ok := chineseDigits[r]; ok {
			digit = d
			continue
		}
		if r >= '0' && r <= '9' {
			digit = int(r - '0')
			continue
		}
		if unit, ok := chineseSmallUnits[r]; ok {
			if digit == 0 {
				digit = 1
			}
			section += digit * unit
			digit = 0
			continue
		}
		switch r {
		case '万':
			n := section + digit
			if n == 0 && result == 0 {
				n = 1
			}
			result += n * 10000
			section, digit = 0, 0
		case '亿':
			n := result + section + digit
			if n == 0 {
				n = 1
			}
			if n > MaxChineseNumber/100000000 {
				return 0, false
			}
			result = n * 100000000
			section, digit = 0, 0
		}
		if result > MaxChineseNumber {
			return 0, false
		}
	}

	total := result + section + digit
	if total > MaxChineseNumber {
		return 0, false
	}
	return total, true
}
