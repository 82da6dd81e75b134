package normalizer

import (
	"strings"
)

// ipNotation classifies a single host label by how it encodes a number
type ipNotation int

const (
	notationNone ipNotation = iota
	notationDecimal
	notationOctal
	notationHex
)

func classifyLabel(label string) ipNotation {
	if label == "" {
		return notationNone
	}
	lower := strings.ToLower(label)
	if strings.HasPrefix(lower, "0x") {
		rest := lower[2:]
		if rest != "" && isHexDigits(rest) {
			return notationHex
		}
		return notationNone
	}
	if !isDigits(label) {
		return notationNone
	}
	if len(label) > 1 && label[0] == '0' && isOctalDigits(label) {
		return notationOctal
	}
	return notationDecimal
}

// detectIPObfuscation inspects a hostname for numeric-host trickery:
// a single decimal number host (http://3232235777/), all-octal dotted
// labels, 0x-prefixed labels, or a mix of notations. Plain dotted-quad
// IPv4 hosts are not obfuscated and return nothing.
func detectIPObfuscation(host string) (Attack, bool) {
	if host == "" {
		return "", false
	}
	labels := strings.Split(host, ".")

	// Single all-digit label: decimal-encoded address.
	if len(labels) == 1 {
		switch classifyLabel(labels[0]) {
		case notationDecimal:
			return AttackDecimalIP, true
		case notationHex:
			return AttackHexIP, true
		case notationOctal:
			return AttackOctalIP, true
		}
		return "", false
	}

	seen := make(map[ipNotation]bool)
	for _, l := range labels {
		n := classifyLabel(l)
		if n == notationNone {
			return "", false // not a numeric host at all
		}
		seen[n] = true
	}

	if len(seen) > 1 {
		return AttackMixedIPNotation, true
	}
	if seen[notationOctal] {
		return AttackOctalIP, true
	}
	if seen[notationHex] {
		return AttackHexIP, true
	}
	// Uniform dotted decimal: only obfuscated when labels overflow a
	// normal quad (e.g. 192.168.1.256 style packing) or the quad is
	// short.
	if len(labels) != 4 {
		return AttackDecimalIP, true
	}
	for _, l := range labels {
		if len(l) > 3 {
			return AttackDecimalIP, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isOctalDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '7' {
			return false
		}
	}
	return s != ""
}

func isHexDigits(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return s != ""
}
