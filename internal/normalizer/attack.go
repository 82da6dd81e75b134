package normalizer

// Attack identifies one obfuscation technique detected while
// normalizing a URL. The enumeration is closed; every variant carries a
// fixed risk weight.
type Attack string

const (
	AttackZeroWidthCharacters  Attack = "ZERO_WIDTH_CHARACTERS"
	AttackRTLOverride          Attack = "RTL_OVERRIDE"
	AttackDoubleEncoding       Attack = "DOUBLE_ENCODING"
	AttackUnnecessaryEncoding  Attack = "UNNECESSARY_ENCODING"
	AttackMixedCaseEncoding    Attack = "MIXED_CASE_ENCODING"
	AttackMixedScripts         Attack = "MIXED_SCRIPTS"
	AttackCombiningMarks       Attack = "COMBINING_MARKS"
	AttackNestedRedirects      Attack = "NESTED_REDIRECTS"
	AttackUnicodeNormalization Attack = "UNICODE_NORMALIZATION"
	AttackPunycodeDomain       Attack = "PUNYCODE_DOMAIN"
	AttackDecimalIP            Attack = "DECIMAL_IP"
	AttackOctalIP              Attack = "OCTAL_IP"
	AttackHexIP                Attack = "HEX_IP"
	AttackMixedIPNotation      Attack = "MIXED_IP_NOTATION"
)

var attackWeights = map[Attack]int{
	AttackZeroWidthCharacters:  30,
	AttackRTLOverride:          40,
	AttackDoubleEncoding:       35,
	AttackUnnecessaryEncoding:  15,
	AttackMixedCaseEncoding:    10,
	AttackMixedScripts:         45,
	AttackCombiningMarks:       25,
	AttackNestedRedirects:      30,
	AttackUnicodeNormalization: 15,
	AttackPunycodeDomain:       20,
	AttackDecimalIP:            25,
	AttackOctalIP:              30,
	AttackHexIP:                30,
	AttackMixedIPNotation:      35,
}

// Weight returns the fixed risk contribution of the attack
func (a Attack) Weight() int {
	return attackWeights[a]
}
