package homoglyph

// Script buckets a code point into one of the writing systems the
// analyzer cares about. Common (digits, dots, hyphens) never counts
// toward mixed-script detection.
type Script int

const (
	ScriptCommon Script = iota
	ScriptLatin
	ScriptCyrillic
	ScriptGreek
	ScriptArabic
	ScriptHebrew
	ScriptCJK
	ScriptOther
)

// String returns the bucket name
func (s Script) String() string {
	switch s {
	case ScriptCommon:
		return "common"
	case ScriptLatin:
		return "latin"
	case ScriptCyrillic:
		return "cyrillic"
	case ScriptGreek:
		return "greek"
	case ScriptArabic:
		return "arabic"
	case ScriptHebrew:
		return "hebrew"
	case ScriptCJK:
		return "cjk"
	default:
		return "other"
	}
}

// ClassifyRune assigns a script bucket using fixed code point ranges
func ClassifyRune(r rune) Script {
	switch {
	case r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		return ScriptCommon
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return ScriptLatin
	case r >= 0x00C0 && r <= 0x024F: // Latin-1 supplement + extended A/B
		return ScriptLatin
	case r >= 0x0370 && r <= 0x03FF:
		return ScriptGreek
	case r >= 0x0400 && r <= 0x04FF, r >= 0x0500 && r <= 0x052F:
		return ScriptCyrillic
	case r >= 0x0590 && r <= 0x05FF:
		return ScriptHebrew
	case r >= 0x0600 && r <= 0x06FF, r >= 0x0750 && r <= 0x077F:
		return ScriptArabic
	case r >= 0x4E00 && r <= 0x9FFF, // CJK unified ideographs
		r >= 0x3040 && r <= 0x30FF, // hiragana + katakana
		r >= 0xAC00 && r <= 0xD7AF: // hangul
		return ScriptCJK
	default:
		return ScriptOther
	}
}
