package security

import (
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// StrengthIssue identifies the first password policy rule a candidate
// password violates, or IssueNone when it is acceptable.
type StrengthIssue string

const (
	IssueNone                        StrengthIssue = ""
	IssueTooShort                    StrengthIssue = "too_short"
	IssueTooLong                     StrengthIssue = "too_long"
	IssueContainsWhitespace          StrengthIssue = "contains_whitespace"
	IssueMissingUpperCaseLetter      StrengthIssue = "missing_upper_case_letter"
	IssueMissingLowerCaseLetter      StrengthIssue = "missing_lower_case_letter"
	IssueMissingDigit                StrengthIssue = "missing_digit"
	IssueMissingSymbol               StrengthIssue = "missing_symbol"
	IssueInsufficientSymbolDiversity StrengthIssue = "insufficient_symbol_diversity"
)

// PasswordPolicy checks candidate passwords against structural rules and a
// zxcvbn entropy estimate. The policy ships disabled: Check returns IssueNone
// for every input until Enabled is set, because turning the rules on is a
// client-visible behavior change.
type PasswordPolicy struct {
	Enabled        bool
	MinLength      int
	MaxLength      int
	MinZxcvbnScore int
}

// NewPasswordPolicy returns the policy in its disabled default state with
// the rule thresholds preconfigured (8-16 characters, zxcvbn score >= 2).
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		Enabled:        false,
		MinLength:      8,
		MaxLength:      16,
		MinZxcvbnScore: 2,
	}
}

// Check reports the first rule the password violates. Rules are ordered from
// cheapest to most expensive; the zxcvbn estimate runs last and stands in
// for the symbol diversity requirement.
func (p *PasswordPolicy) Check(password string) StrengthIssue {
	if p == nil || !p.Enabled {
		return IssueNone
	}

	runes := []rune(password)
	if len(runes) < p.MinLength {
		return IssueTooShort
	}
	if len(runes) > p.MaxLength {
		return IssueTooLong
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasDigit  bool
		hasSymbol bool
	)

	for _, r := range runes {
		switch {
		case unicode.IsSpace(r):
			return IssueContainsWhitespace
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return IssueMissingUpperCaseLetter
	case !hasLower:
		return IssueMissingLowerCaseLetter
	case !hasDigit:
		return IssueMissingDigit
	case !hasSymbol:
		return IssueMissingSymbol
	}

	if p.MinZxcvbnScore > 0 {
		result := zxcvbn.PasswordStrength(password, nil)
		if result.Score < p.MinZxcvbnScore {
			return IssueInsufficientSymbolDiversity
		}
	}

	return IssueNone
}
