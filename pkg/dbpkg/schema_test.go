package dbpkg

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// Money columns must not round: NUMERIC(p, s) would silently drop digits past s.
func TestSchemaMoneyColumnsUnscaled(t *testing.T) {
	scaled := regexp.MustCompile(`(?i)NUMERIC\s*\(`)
	require.False(t, scaled.MatchString(Schema), "schema declares a scale-limited NUMERIC column")

	for _, column := range []string{"balance", "amount"} {
		re := regexp.MustCompile(`(?i)ALTER COLUMN ` + column + ` TYPE NUMERIC;`)
		require.True(t, re.MatchString(Schema), "schema does not widen existing %s column", column)
	}
}
