package textutil_test

import (
	"testing"

	"bokat-client/lib/textutil"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "annaandersson", textutil.NormalizeName("  Anna \n Andersson "))
}

func TestMatchName(t *testing.T) {
	matchers := []string{"kommerinte", "nej!"}
	require.True(t, textutil.MatchName("Kommer inte", matchers))
	require.True(t, textutil.MatchName(" NEJ! ", matchers))
	require.False(t, textutil.MatchName("Kommer", matchers))
}

func TestCleanCell(t *testing.T) {
	require.Equal(t, "", textutil.CleanCell(" "))
	require.Equal(t, "", textutil.CleanCell("&nbsp;"))
	require.Equal(t, "Fredag 19:00", textutil.CleanCell("  Fredag \n 19:00 "))
}
