package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/taikoxyz/batchwallet/internal/codec"
	"github.com/taikoxyz/batchwallet/internal/multicall"
)

var (
	erc20Token    string
	erc20Accounts []string
)

var erc20Cmd = &cobra.Command{
	Use:   "erc20",
	Short: "Read ERC-20 metadata and balances in one aggregate call",
	RunE:  runERC20,
}

func init() {
	erc20Cmd.Flags().StringVar(&erc20Token, "token", "", "ERC-20 token contract address (required)")
	erc20Cmd.Flags().StringSliceVar(&erc20Accounts, "account", nil, "Account to query the balance of (repeatable)")
	erc20Cmd.MarkFlagRequired("token")
	rootCmd.AddCommand(erc20Cmd)
}

func runERC20(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if !common.IsHexAddress(erc20Token) {
		return fmt.Errorf("invalid token address: %s", erc20Token)
	}
	token := common.HexToAddress(erc20Token)

	accounts := make([]common.Address, 0, len(erc20Accounts))
	for _, account := range erc20Accounts {
		if !common.IsHexAddress(account) {
			return fmt.Errorf("invalid account address: %s", account)
		}
		accounts = append(accounts, common.HexToAddress(account))
	}

	_, client, caller, err := newReader(log)
	if err != nil {
		return err
	}
	defer client.Close()

	calls := []multicall.Call{
		{Target: token, Method: codec.Name},
		{Target: token, Method: codec.Symbol},
		{Target: token, Method: codec.Decimals},
		{Target: token, Method: codec.TotalSupply},
	}
	for _, account := range accounts {
		calls = append(calls, multicall.Call{
			Target: token,
			Method: codec.BalanceOf,
			Args:   []interface{}{account},
		})
	}

	results, err := caller.Aggregate(cmd.Context(), calls, true)
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"token":       token.Hex(),
		"name":        results[0].Value,
		"symbol":      results[1].Value,
		"decimals":    results[2].Value,
		"totalSupply": bigString(results[3].Value),
	}

	balances := make(map[string]interface{}, len(accounts))
	for i, account := range accounts {
		balances[account.Hex()] = bigString(results[4+i].Value)
	}
	if len(balances) > 0 {
		out["balances"] = balances
	}

	return printJSON(out)
}

// bigString renders a decoded uint256 as a decimal string, or nil when the
// call carried no value.
func bigString(v interface{}) interface{} {
	if b, ok := v.(*big.Int); ok {
		return b.String()
	}
	return nil
}
