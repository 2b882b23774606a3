package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		RPCURL:           "http://localhost:8545",
		MulticallAddress: common.HexToAddress(DefaultMulticallAddress),
	}
}

func TestEndpointExplicitURLWins(t *testing.T) {
	cfg := &Config{RPCURL: "http://localhost:8545", Network: "sepolia"}

	endpoint, err := cfg.Endpoint()
	require.Nil(t, err)
	require.Equal(t, "http://localhost:8545", endpoint)
}

func TestEndpointNamedNetwork(t *testing.T) {
	cfg := &Config{Network: "sepolia"}

	endpoint, err := cfg.Endpoint()
	require.Nil(t, err)
	require.Equal(t, networks["sepolia"], endpoint)
}

func TestEndpointUnknownNetwork(t *testing.T) {
	cfg := &Config{Network: "testnet-42"}

	_, err := cfg.Endpoint()
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "unknown network")
}

func TestEndpointMissing(t *testing.T) {
	cfg := &Config{}

	_, err := cfg.Endpoint()
	require.NotNil(t, err)
}

func TestValidate(t *testing.T) {
	require.Nil(t, validConfig().Validate())

	cfg := validConfig()
	cfg.MulticallAddress = common.Address{}
	require.NotNil(t, cfg.Validate())
}

func TestValidateSigning(t *testing.T) {
	cfg := validConfig()
	err := cfg.ValidateSigning()
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "private key or keystore")

	cfg.PrivateKey = "ab"
	require.Nil(t, cfg.ValidateSigning())

	cfg.PrivateKey = ""
	cfg.KeystorePath = "wallet.json"
	require.Nil(t, cfg.ValidateSigning())

	cfg.KeystorePath = ""
	cfg.DryRun = true
	require.Nil(t, cfg.ValidateSigning())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.Nil(t, os.WriteFile(envPath, []byte("BATCHWALLET_TEST_KEY=loaded\n"), 0o600))

	require.Nil(t, LoadEnv(envPath))
	require.Equal(t, "loaded", os.Getenv("BATCHWALLET_TEST_KEY"))
	os.Unsetenv("BATCHWALLET_TEST_KEY")

	// A missing file is not an error.
	require.Nil(t, LoadEnv(filepath.Join(dir, "missing.env")))
}
