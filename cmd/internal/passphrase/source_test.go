package passphrase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceUsesEnvironment(t *testing.T) {
	t.Setenv("NFTSTAKE_TEST_PASS", "hunter2")
	src := NewSource("NFTSTAKE_TEST_PASS")
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)

	t.Setenv("NFTSTAKE_TEST_PASS", "changed")
	value, err = src.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("NFTSTAKE_TEST_PASS", "   ")
	_, err := NewSource("NFTSTAKE_TEST_PASS").Get()
	require.ErrorContains(t, err, "set but empty")
}
