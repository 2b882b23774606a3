package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/taikoxyz/batchwallet/internal/batch"
)

var (
	transferTo     []string
	transferAmount string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send the same native amount to several recipients in one atomic batch",
	RunE:  runTransfer,
}

func init() {
	transferCmd.Flags().StringSliceVar(&transferTo, "to", nil, "Recipient address (repeatable, required)")
	transferCmd.Flags().StringVar(&transferAmount, "amount", "", "Amount per recipient in ether units, e.g. 1.5 (required)")
	transferCmd.MarkFlagRequired("to")
	transferCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(transferCmd)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	amount, err := decimal.NewFromString(transferAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", transferAmount, err)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive, got %s", transferAmount)
	}

	wei := amount.Shift(18)
	if !wei.IsInteger() {
		return fmt.Errorf("amount %s has more than 18 decimal places", transferAmount)
	}

	calls := make([]batch.ExecutionCall, 0, len(transferTo))
	for _, to := range transferTo {
		if !common.IsHexAddress(to) {
			return fmt.Errorf("invalid recipient address: %s", to)
		}
		calls = append(calls, batch.ExecutionCall{
			Target: common.HexToAddress(to),
			Value:  wei.BigInt(),
		})
	}

	cfg, client, snd, err := newSender(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.DelegateAddress == (common.Address{}) {
		return fmt.Errorf("delegate contract address is required (use --delegate or set DELEGATE_ADDRESS)")
	}

	hash, err := snd.ExecuteBatch(cmd.Context(), cfg.DelegateAddress, calls)
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"txHash":     hash.Hex(),
		"recipients": len(calls),
		"amountWei":  wei.BigInt().String(),
		"dryRun":     cfg.DryRun,
	})
}
