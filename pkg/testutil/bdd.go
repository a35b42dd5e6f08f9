// Package testutil provides small helpers shared by handler and end-to-end
// tests.
package testutil

import "testing"

// Given, When, and Then wrap t.Run so scenario tests read as prose without a
// BDD framework dependency.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
