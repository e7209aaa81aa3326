package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "diesendung", Normalize("Die_Sendung"))
	require.Equal(t, "die sendung", Normalize("Die Sendung"))
	require.Equal(t, "lowenzahn", Normalize("Löwenzahn"))
	require.Equal(t, Normalize("Lowenzahn"), Normalize("Löwenzahn"))
	require.Equal(t, "cafe creme", Normalize("Café Crème"))
	require.Equal(t, "", Normalize("___"))
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{
		"",
		"Mein_Film",
		"Löwenzahn",
		"ÀÉÎÕÜ_ñ",
		"Straße",
		"Ǆemal",
		"Mein_Film_23.05.24_20-15_abc_90_TVOON_DE.mpg.HQ.avi.otrkey",
	} {
		once := Normalize(s)
		require.Equal(t, once, Normalize(once), s)
	}
}
