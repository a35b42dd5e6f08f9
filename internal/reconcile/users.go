package reconcile

import dErrors "dwhmon/pkg/domain-errors"

// AliasMap groups raw usernames under a canonical identity. Usernames absent
// from the map pass through unchanged, so resolution is total.
type AliasMap map[string]string

// Resolve maps a raw username to its canonical identity. Resolving an
// already-canonical name returns it unchanged (idempotence).
func (m AliasMap) Resolve(name string) string {
	if canonical, ok := m[name]; ok {
		return canonical
	}
	return name
}

// Validate rejects alias chains: a canonical name that is itself aliased to
// something else would make Resolve non-idempotent.
func (m AliasMap) Validate() error {
	for raw, canonical := range m {
		if canonical == "" {
			return dErrors.Newf(dErrors.CodeConfig, "alias for %q maps to an empty canonical name", raw)
		}
		if next, ok := m[canonical]; ok && next != canonical {
			return dErrors.Newf(dErrors.CodeConfig, "alias chain: %q -> %q -> %q", raw, canonical, next)
		}
	}
	return nil
}

// ReconcileUsers returns the total raw-to-canonical mapping for the given
// usernames.
func ReconcileUsers(raw []string, aliases AliasMap) map[string]string {
	out := make(map[string]string, len(raw))
	for _, name := range raw {
		out[name] = aliases.Resolve(name)
	}
	return out
}
