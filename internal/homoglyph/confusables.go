package homoglyph

// zeroWidth is the fixed set of invisible code points stripped by the
// skeleton and flagged by the analyzer.
var zeroWidth = map[rune]bool{
	0x00AD: true, // soft hyphen
	0x180E: true, // mongolian vowel separator
	0x200B: true, // zero width space
	0x200C: true, // zero width non-joiner
	0x200D: true, // zero width joiner
	0x200E: true, // left-to-right mark
	0x200F: true, // right-to-left mark
	0x2060: true, // word joiner
	0x2061: true,
	0x2062: true,
	0x2063: true,
	0x2064: true,
	0xFEFF: true, // zero width no-break space
}

// IsZeroWidth reports whether r is in the invisible code point set
func IsZeroWidth(r rune) bool {
	return zeroWidth[r]
}

// confusables maps look-alike code points to their canonical lowercase
// Latin form. Targets always map to themselves, which keeps the skeleton
// idempotent. ASCII digit entries cover leetspeak substitution
// (paypa1 -> paypal); they participate in skeleton matching only, not in
// the confusable-character presence check.
var confusables = map[rune]rune{
	// leet digits
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's', '7': 't',

	// Cyrillic
	'а': 'a', 'в': 'b', 'е': 'e', 'ѕ': 's', 'і': 'i', 'ј': 'j',
	'к': 'k', 'м': 'm', 'н': 'h', 'о': 'o', 'р': 'p', 'с': 'c',
	'т': 't', 'у': 'y', 'х': 'x', 'ь': 'b', 'ԁ': 'd', 'ԛ': 'q',
	'ԝ': 'w', 'ё': 'e', 'ѵ': 'v', 'ғ': 'f', 'һ': 'h',

	// Greek
	'α': 'a', 'β': 'b', 'ε': 'e', 'η': 'n', 'ι': 'i', 'κ': 'k',
	'ν': 'v', 'ο': 'o', 'ρ': 'p', 'τ': 't', 'υ': 'u', 'χ': 'x',
	'ω': 'w', 'ϲ': 'c', 'ϳ': 'j',

	// Latin extended / accented
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'ā': 'a', 'ă': 'a', 'ą': 'a',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'ď': 'd', 'đ': 'd',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e', 'ĕ': 'e',
	'ė': 'e', 'ę': 'e', 'ě': 'e',
	'ğ': 'g', 'ģ': 'g',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i', 'ĩ': 'i', 'ī': 'i',
	'ı': 'i',
	'ķ': 'k',
	'ļ': 'l', 'ľ': 'l', 'ł': 'l',
	'ñ': 'n', 'ń': 'n', 'ň': 'n',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o', 'ō': 'o',
	'ŕ': 'r', 'ř': 'r',
	'ś': 's', 'ş': 's', 'š': 's',
	'ţ': 't', 'ť': 't',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
	'ŵ': 'w',
	'ý': 'y', 'ÿ': 'y', 'ŷ': 'y',
	'ź': 'z', 'ż': 'z', 'ž': 'z',
}
