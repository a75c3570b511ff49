package oops

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireNoError fails the test with the full stack when err carries one
func RequireNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		return
	}

	sterr, ok := err.(*Error)
	if !ok {
		require.Fail(t, fmt.Sprintf("Received unexpected error:\n%+v", err), msgAndArgs...)
		return
	}
	require.Fail(t, fmt.Sprintf("Received unexpected error:\n%s", sterr.FullString()), msgAndArgs...)
}
