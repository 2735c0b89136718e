package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dserrors "github.com/systmms/vaultcache/internal/errors"
)

// AssertNoSecretLeak verifies that none of secrets appear in output.
//
// Example usage:
//
//	AssertNoSecretLeak(t, logger.GetOutput(), []string{"s3cret", fv.Token})
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should never appear in output", secret)
	}
}

// AssertErrorKind verifies that err is non-nil and classifies as want.
func AssertErrorKind(t *testing.T, err error, want dserrors.Kind) {
	t.Helper()

	if assert.Error(t, err, "Expected an error of kind %s", want) {
		assert.Equal(t, want, dserrors.KindOf(err), "Unexpected kind for error: %v", err)
	}
}

// AssertErrorContains verifies that an error occurred and contains substr.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()

	assert.Error(t, err, "Expected an error to occur")
	if err != nil {
		assert.Contains(t, err.Error(), substr,
			"Error message should contain %q", substr)
	}
}

// AssertLinesContain verifies that each expected substring appears on some
// line of output.
func AssertLinesContain(t *testing.T, output string, expectedLines []string) {
	t.Helper()

	lines := strings.Split(output, "\n")

	for _, expected := range expectedLines {
		found := false
		for _, line := range lines {
			if strings.Contains(line, expected) {
				found = true
				break
			}
		}

		assert.True(t, found,
			"Expected to find line containing %q in output", expected)
	}
}
