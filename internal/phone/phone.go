// Package phone canonicalizes phone numbers for the fixed local dialing
// convention used by the exported logs (Maldives numbering plan: country
// code 960, 7-digit subscribers, mobile ranges starting with 7 or 9).
//
// Normalize is the contact identity key for the whole system: the resolver
// looks contacts up by its output, and the merge pass groups contacts by it.
package phone

import "strings"

const (
	// CountryCode is the international calling code, without the plus.
	CountryCode = "960"

	// SubscriberLength is the number of digits in a full local subscriber
	// number, trunk digit included.
	SubscriberLength = 7

	// DefaultTrunk is the digit prepended to trunkless short forms.
	DefaultTrunk = "7"
)

// trunkDigits are the leading digits of valid local subscriber numbers.
var trunkDigits = "79"

// Normalize returns the canonical international form of raw.
//
// Rules are applied in order, first match wins:
//
//  1. already canonical ("+960...")            -> unchanged
//  2. country code without the plus            -> "+" prefixed
//  3. full local number with trunk digit       -> "+960" prefixed
//  4. trunkless short form (6 digits)          -> "+960" + trunk prefixed
//  5. anything else                            -> unchanged
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	n := strings.TrimSpace(raw)
	if n == "" {
		return raw
	}

	if strings.HasPrefix(n, "+"+CountryCode) {
		return n
	}

	if strings.HasPrefix(n, CountryCode) && allDigits(n) && len(n) == len(CountryCode)+SubscriberLength {
		return "+" + n
	}

	if allDigits(n) && len(n) == SubscriberLength && strings.ContainsRune(trunkDigits, rune(n[0])) {
		return "+" + CountryCode + n
	}

	if allDigits(n) && len(n) == SubscriberLength-1 {
		return "+" + CountryCode + DefaultTrunk + n
	}

	return n
}

func allDigits(s string) bool {
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
