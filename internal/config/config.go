package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// DefaultMulticallAddress is the canonical Multicall3 deployment, identical
// across the supported networks.
const DefaultMulticallAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"

// Known network endpoints selectable by name instead of a raw RPC URL.
var networks = map[string]string{
	"mainnet": "https://ethereum-rpc.publicnode.com",
	"sepolia": "https://ethereum-sepolia-rpc.publicnode.com",
	"holesky": "https://ethereum-holesky-rpc.publicnode.com",
}

type Config struct {
	RPCURL           string
	Network          string
	MulticallAddress common.Address
	DelegateAddress  common.Address
	PrivateKey       string
	KeystorePath     string
	Password         string
	DryRun           bool
}

func LoadEnv(filepath string) error {
	if filepath == "" {
		filepath = ".env"
	}

	if _, err := os.Stat(filepath); err == nil {
		return godotenv.Load(filepath)
	}

	return nil
}

// Endpoint resolves the RPC endpoint: an explicit URL wins over a named
// network.
func (c *Config) Endpoint() (string, error) {
	if c.RPCURL != "" {
		return c.RPCURL, nil
	}
	if url, ok := networks[c.Network]; ok {
		return url, nil
	}
	if c.Network != "" {
		return "", fmt.Errorf("unknown network: %s", c.Network)
	}
	return "", fmt.Errorf("RPC URL or network name is required")
}

func (c *Config) Validate() error {
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	if c.MulticallAddress == (common.Address{}) {
		return fmt.Errorf("multicall contract address is required")
	}
	return nil
}

// ValidateSigning checks the extra requirements of state-changing commands.
func (c *Config) ValidateSigning() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PrivateKey == "" && c.KeystorePath == "" && !c.DryRun {
		return fmt.Errorf("private key or keystore is required (use --private-key, --keystore or set PRIVATE_KEY in .env)")
	}
	return nil
}
