package testutil

import "testing"

// RequireNoError fails the test immediately if err is non-nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
