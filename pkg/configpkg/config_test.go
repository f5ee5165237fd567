package configpkg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, StoreMemory, c.StoreDriver)
	require.Equal(t, "accounts", c.AccountsTable)
	require.Equal(t, "transfers", c.TransfersTable)
	require.Equal(t, "500", c.DefaultBalance)
	require.Equal(t, time.Second, c.CreditRetryInterval)
	require.Equal(t, uint64(30), c.CreditMaxRetries)
	require.Equal(t, uint64(10), c.LedgerMaxRetries)
	require.Equal(t, 2*time.Minute, c.SettleTimeout)
	require.False(t, c.IsOffline)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	content := []byte(`STORE_DRIVER=dynamodb
DYNAMODB_ENDPOINT=http://localhost:8032
ACCOUNTS_TABLE=psd-users
TRANSFERS_TABLE=psd-transactions
IS_OFFLINE=true
CREDIT_RETRY_INTERVAL=250ms
CREDIT_MAX_RETRIES=5
SETTLE_TIMEOUT=45s
`)
	err := os.WriteFile(filepath.Join(dir, "app.env"), content, 0o600)
	require.NoError(t, err)

	c, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, StoreDynamoDB, c.StoreDriver)
	require.Equal(t, "http://localhost:8032", c.DynamoDBEndpoint)
	require.Equal(t, "psd-users", c.AccountsTable)
	require.Equal(t, "psd-transactions", c.TransfersTable)
	require.True(t, c.IsOffline)
	require.Equal(t, 250*time.Millisecond, c.CreditRetryInterval)
	require.Equal(t, uint64(5), c.CreditMaxRetries)
	require.Equal(t, 45*time.Second, c.SettleTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRANSFERS_TABLE", "ledger")
	t.Setenv("REQUIRE_AUTH", "true")

	c, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "ledger", c.TransfersTable)
	require.True(t, c.RequireAuth)
}
