/**
 * @description
 * Heuristic validator for account-holder names against UK banking
 * character and structure rules. The scoring is a deterministic rule
 * table, not a probabilistic model: each rule adjusts a base confidence of
 * 50 and may raise a warning. A name is valid only when the final
 * confidence reaches 60 and no warnings were raised.
 */
package banking

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
)

// UK bank account-holder name fields are capped at 35 characters.
const maxAccountNameLength = 35

var (
	allowedNameChars    = regexp.MustCompile(`^[A-Za-z .'-]+$`)
	leadingTitle        = regexp.MustCompile(`^(Mr|Mrs|Miss|Ms|Dr|Prof|Sir|Lady|Lord)\.?\s`)
	containsDigit       = regexp.MustCompile(`[0-9]`)
	consecutiveSpecials = regexp.MustCompile(`[-'.]{2,}`)
)

// ValidateAccountHolderName scores a name against UK banking name rules.
func ValidateAccountHolderName(name string) domain.NameValidationResult {
	trimmed := strings.TrimSpace(name)

	result := domain.NameValidationResult{
		Warnings: []string{},
	}

	// Length is measured in characters, not bytes, so multi-byte names
	// are held to the same 35-character field limit.
	nameLength := utf8.RuneCountInString(trimmed)
	if nameLength < 2 || nameLength > maxAccountNameLength {
		result.Warnings = append(result.Warnings, "Name must be between 2 and 35 characters")
		return result
	}

	confidence := 50

	if !allowedNameChars.MatchString(trimmed) {
		result.Warnings = append(result.Warnings, "Name contains characters not accepted by UK banks")
		confidence -= 30
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) < 2 {
		result.Warnings = append(result.Warnings, "Name should include first and last name")
		confidence -= 20
	} else {
		confidence += 15
	}

	if leadingTitle.MatchString(trimmed) {
		confidence += 10
		result.Suggestions = append(result.Suggestions, "Consider removing the title so the name matches bank records")
	}

	if containsDigit.MatchString(trimmed) {
		result.Warnings = append(result.Warnings, "Name should not contain numbers")
		confidence -= 25
	}

	if consecutiveSpecials.MatchString(trimmed) {
		result.Warnings = append(result.Warnings, "Name contains consecutive special characters")
		confidence -= 15
	}

	singleLetterTokens := 0
	for _, token := range tokens {
		if len(strings.Trim(token, ".")) == 1 {
			singleLetterTokens++
		}
	}
	if singleLetterTokens > 2 {
		result.Warnings = append(result.Warnings, "Name appears to contain too many initials")
		confidence -= 10
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	result.Confidence = confidence
	result.IsValid = confidence >= 60 && len(result.Warnings) == 0
	return result
}
