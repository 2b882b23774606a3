package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/taikoxyz/batchwallet/internal/batch"
)

var execCalls []string

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute an arbitrary atomic call batch through the delegate",
	Long:  `Each --call takes the form target:value:data with value in wei and data as 0x-prefixed hex (use 0x for a plain transfer).`,
	RunE:  runExec,
}

func init() {
	execCmd.Flags().StringSliceVar(&execCalls, "call", nil, "Sub-call as target:value:data (repeatable, required)")
	execCmd.MarkFlagRequired("call")
	rootCmd.AddCommand(execCmd)
}

func parseExecCall(raw string) (batch.ExecutionCall, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return batch.ExecutionCall{}, fmt.Errorf("malformed call %q, want target:value:data", raw)
	}

	if !common.IsHexAddress(parts[0]) {
		return batch.ExecutionCall{}, fmt.Errorf("invalid target address: %s", parts[0])
	}

	value, ok := new(big.Int).SetString(parts[1], 10)
	if !ok || value.Sign() < 0 {
		return batch.ExecutionCall{}, fmt.Errorf("invalid wei value: %s", parts[1])
	}

	var data []byte
	if parts[2] != "" && parts[2] != "0x" {
		var err error
		if data, err = hexutil.Decode(parts[2]); err != nil {
			return batch.ExecutionCall{}, fmt.Errorf("invalid call data %q: %w", parts[2], err)
		}
	}

	return batch.ExecutionCall{
		Target: common.HexToAddress(parts[0]),
		Value:  value,
		Data:   data,
	}, nil
}

func runExec(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	calls := make([]batch.ExecutionCall, 0, len(execCalls))
	for _, raw := range execCalls {
		call, err := parseExecCall(raw)
		if err != nil {
			return err
		}
		calls = append(calls, call)
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
		"txHash": hash.Hex(),
		"calls":  len(calls),
		"dryRun": cfg.DryRun,
	})
}
