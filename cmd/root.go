package cmd

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/taikoxyz/batchwallet/internal/auth"
	"github.com/taikoxyz/batchwallet/internal/codec"
	"github.com/taikoxyz/batchwallet/internal/config"
	"github.com/taikoxyz/batchwallet/internal/keys"
	"github.com/taikoxyz/batchwallet/internal/logger"
	"github.com/taikoxyz/batchwallet/internal/multicall"
	"github.com/taikoxyz/batchwallet/internal/sender"
)

var (
	rpcURL        string
	network       string
	multicallAddr string
	delegateAddr  string
	privateKey    string
	keystorePath  string
	password      string
	envFile       string
	dryRun        bool
	logJSON       bool
	logDebug      bool
)

var rootCmd = &cobra.Command{
	Use:           "batchwallet",
	Short:         "Batched reads and EIP-7702 batched execution for a single EOA",
	Long:          `A CLI wallet that aggregates contract reads through Multicall3 and executes atomic call batches through an EIP-7702 delegate contract installed at the account's own address.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rpcURL, "rpc", "", "RPC URL for blockchain connection")
	pf.StringVar(&network, "network", "", "Named network endpoint: mainnet, sepolia or holesky")
	pf.StringVar(&multicallAddr, "multicall", config.DefaultMulticallAddress, "Multicall3 contract address")
	pf.StringVar(&delegateAddr, "delegate", "", "Delegate contract address for batch execution")
	pf.StringVar(&privateKey, "private-key", "", "Private key for transaction signing")
	pf.StringVar(&keystorePath, "keystore", "", "Keystore JSON file path")
	pf.StringVar(&password, "password", "", "Keystore password (prompted when empty)")
	pf.StringVar(&envFile, "env", ".env", "Environment file path")
	pf.BoolVar(&dryRun, "dry", false, "Dry run mode - simulate transactions without sending")
	pf.BoolVar(&logJSON, "log.json", false, "Output logs in JSON format")
	pf.BoolVar(&logDebug, "log.debug", false, "Enable debug logging")
}

func initConfig() {
	_ = config.LoadEnv(envFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if privateKey == "" {
		privateKey = viper.GetString("PRIVATE_KEY")
	}
	if rpcURL == "" {
		rpcURL = viper.GetString("RPC_URL")
	}
	if delegateAddr == "" {
		delegateAddr = viper.GetString("DELEGATE_ADDRESS")
	}
}

func loadConfig() (*config.Config, error) {
	cfg := &config.Config{
		RPCURL:       rpcURL,
		Network:      network,
		PrivateKey:   privateKey,
		KeystorePath: keystorePath,
		Password:     password,
		DryRun:       dryRun,
	}

	if multicallAddr != "" {
		if !common.IsHexAddress(multicallAddr) {
			return nil, fmt.Errorf("invalid multicall address: %s", multicallAddr)
		}
		cfg.MulticallAddress = common.HexToAddress(multicallAddr)
	}
	if delegateAddr != "" {
		if !common.IsHexAddress(delegateAddr) {
			return nil, fmt.Errorf("invalid delegate address: %s", delegateAddr)
		}
		cfg.DelegateAddress = common.HexToAddress(delegateAddr)
	}

	return cfg, nil
}

func newLogger() (*zap.SugaredLogger, error) {
	log, err := logger.NewLogger(logJSON, logDebug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// newReader wires the read path: RPC client plus aggregate caller.
func newReader(log *zap.SugaredLogger) (*config.Config, *ethclient.Client, *multicall.Caller, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	cdc, err := codec.New()
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	caller, err := multicall.New(client, cfg.MulticallAddress, cdc, log)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	return cfg, client, caller, nil
}

// newSender wires the write path: RPC client, account key, and transaction
// sender.
func newSender(ctx context.Context, log *zap.SugaredLogger) (*config.Config, *ethclient.Client, *sender.Sender, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.ValidateSigning(); err != nil {
		return nil, nil, nil, err
	}

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	var key *ecdsa.PrivateKey
	if cfg.PrivateKey == "" && cfg.KeystorePath == "" {
		// Dry run without a key source: simulate with an ephemeral account.
		if key, err = crypto.GenerateKey(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
		}
		log.Warnw("no key source configured, using ephemeral account for dry run",
			"address", crypto.PubkeyToAddress(key.PublicKey).Hex())
	} else if key, err = keys.Load(cfg.PrivateKey, cfg.KeystorePath, cfg.Password); err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	signer, err := auth.NewSigner(key, chainID)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	return cfg, client, sender.New(client, signer, chainID, log, cfg.DryRun), nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
