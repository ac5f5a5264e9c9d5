/**
 * @description
 * Pure validators for UK bank details: sort code format, account number
 * format, and a best-effort sort-code-prefix to bank-name lookup.
 */
package banking

import "strings"

// sortCodePrefixes maps the first two digits of a sort code to the issuing
// bank. This is a partial list; an empty lookup result is a missing hint,
// not an invalid sort code.
var sortCodePrefixes = map[string]string{
	"01": "National Westminster Bank",
	"04": "Monzo Bank",
	"07": "Nationwide Building Society",
	"08": "The Co-operative Bank",
	"09": "Santander UK",
	"11": "Bank of Scotland (Halifax)",
	"12": "Bank of Scotland",
	"16": "Royal Bank of Scotland",
	"20": "Barclays",
	"23": "Metro Bank",
	"30": "Lloyds Bank",
	"40": "HSBC",
	"50": "National Westminster Bank",
	"60": "National Westminster Bank",
	"77": "Lloyds Bank",
	"80": "Bank of Scotland",
	"82": "Clydesdale Bank",
	"87": "TSB",
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateSortCode reports whether the input is a UK sort code: exactly 6
// decimal digits once hyphens and spaces are removed.
func ValidateSortCode(sortCode string) bool {
	cleaned := stripSeparators(sortCode)
	return len(cleaned) == 6 && allDigits(cleaned)
}

// ValidateAccountNumber reports whether the input is a UK account number:
// exactly 8 decimal digits once spaces are removed.
func ValidateAccountNumber(accountNumber string) bool {
	cleaned := strings.ReplaceAll(accountNumber, " ", "")
	return len(cleaned) == 8 && allDigits(cleaned)
}

// IdentifyBank returns the bank name associated with the sort code's
// two-digit prefix, or an empty string when the prefix is unknown.
func IdentifyBank(sortCode string) string {
	cleaned := stripSeparators(sortCode)
	if len(cleaned) < 2 {
		return ""
	}
	return sortCodePrefixes[cleaned[:2]]
}
