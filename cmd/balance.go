package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/taikoxyz/batchwallet/internal/codec"
	"github.com/taikoxyz/batchwallet/internal/multicall"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>...",
	Short: "Read native balances for a set of accounts in one aggregate call",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	accounts := make([]common.Address, 0, len(args))
	for _, arg := range args {
		if !common.IsHexAddress(arg) {
			return fmt.Errorf("invalid address: %s", arg)
		}
		accounts = append(accounts, common.HexToAddress(arg))
	}

	cfg, client, caller, err := newReader(log)
	if err != nil {
		return err
	}
	defer client.Close()

	// getEthBalance lives on the multicall contract itself.
	calls := make([]multicall.Call, len(accounts))
	for i, account := range accounts {
		calls[i] = multicall.Call{
			Target: cfg.MulticallAddress,
			Method: codec.GetEthBalance,
			Args:   []interface{}{account},
		}
	}

	results, err := caller.Aggregate(cmd.Context(), calls, true)
	if err != nil {
		return err
	}

	balances := make(map[string]interface{}, len(accounts))
	for i, account := range accounts {
		balances[account.Hex()] = bigString(results[i].Value)
	}

	return printJSON(map[string]interface{}{"balances": balances})
}
