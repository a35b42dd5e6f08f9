// Package reconcile classifies and collapses patient and user identity
// records. All rule data (test tokens, duplicate lists, keep-list, aliases)
// is supplied as configuration so the rules stay auditable without code
// changes.
package reconcile

import (
	"strings"

	dErrors "dwhmon/pkg/domain-errors"
)

// Rules is the identity rule set for one report run.
type Rules struct {
	// TestTokens are matched case-insensitively as substrings of the patient
	// display name. A match marks the record as a test patient.
	TestTokens []string `json:"test_tokens"`
	// DuplicateNameTokens are name patterns excluded unconditionally, even
	// for keep-listed identifiers.
	DuplicateNameTokens []string `json:"duplicate_name_tokens"`
	// AlwaysDuplicateIDs are identifiers excluded unconditionally.
	AlwaysDuplicateIDs []string `json:"always_duplicate_ids"`
	// KeepList maps identifiers exempt from test-pattern exclusion to their
	// placeholder category (for example "anonymous_birth" or "research").
	// The report tallies kept records per category.
	KeepList map[string]string `json:"keep_list"`
	// UserAliases groups raw usernames under one canonical identity.
	UserAliases AliasMap `json:"user_aliases"`
}

// DefaultRules mirrors the rule set the warehouse team runs in production.
func DefaultRules() Rules {
	return Rules{
		TestTokens:          []string{"test", "demo", "fictif"},
		DuplicateNameTokens: []string{"doublon"},
		UserAliases: AliasMap{
			"admin admin":      "CODOC",
			"admin2 admin2":    "CODOC",
			"ADMIN_ANONYM":     "CODOC",
			"codon admin":      "CODOC",
			"codoc support":    "CODOC",
			"Nicolas Garcelon": "CODOC",
		},
	}
}

// Validate fails fast on self-contradictory rules. An identifier on both the
// keep-list and the always-duplicate list has no unambiguous precedence, and
// silently picking one would produce a misleading report.
func (r Rules) Validate() error {
	for id, category := range r.KeepList {
		if id == "" {
			return dErrors.New(dErrors.CodeConfig, "keep-list contains an empty identifier")
		}
		if category == "" {
			return dErrors.Newf(dErrors.CodeConfig, "keep-list identifier %q has no category", id)
		}
	}
	for _, id := range r.AlwaysDuplicateIDs {
		if id == "" {
			return dErrors.New(dErrors.CodeConfig, "always-duplicate list contains an empty identifier")
		}
		if _, ok := r.KeepList[id]; ok {
			return dErrors.Newf(dErrors.CodeConfig, "identifier %q is on both the keep-list and the always-duplicate list", id)
		}
	}
	if err := r.UserAliases.Validate(); err != nil {
		return err
	}
	return nil
}

func (r Rules) matchesTestToken(name string) bool {
	return matchesAny(name, r.TestTokens)
}

func (r Rules) matchesDuplicateToken(name string) bool {
	return matchesAny(name, r.DuplicateNameTokens)
}

func matchesAny(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

func (r Rules) keepCategory(id string) (string, bool) {
	category, ok := r.KeepList[id]
	return category, ok
}

func (r Rules) alwaysDuplicateID(id string) bool {
	for _, d := range r.AlwaysDuplicateIDs {
		if d == id {
			return true
		}
	}
	return false
}
