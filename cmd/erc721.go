package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/taikoxyz/batchwallet/internal/codec"
	"github.com/taikoxyz/batchwallet/internal/multicall"
)

// Upper bound on enumerated tokens per owner, to keep a single aggregate
// call within sane calldata limits.
const maxEnumeratedTokens = 512

var (
	erc721Token string
	erc721Owner string
)

var erc721Cmd = &cobra.Command{
	Use:   "erc721",
	Short: "Enumerate an owner's ERC-721 tokens and their URIs",
	Long:  `Runs the dependent fan-out: balanceOf, then tokenOfOwnerByIndex for each index, then tokenURI for each enumerated token, three aggregate round trips in total.`,
	RunE:  runERC721,
}

func init() {
	erc721Cmd.Flags().StringVar(&erc721Token, "token", "", "ERC-721 token contract address (required)")
	erc721Cmd.Flags().StringVar(&erc721Owner, "owner", "", "Owner address to enumerate (required)")
	erc721Cmd.MarkFlagRequired("token")
	erc721Cmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(erc721Cmd)
}

func runERC721(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if !common.IsHexAddress(erc721Token) {
		return fmt.Errorf("invalid token address: %s", erc721Token)
	}
	if !common.IsHexAddress(erc721Owner) {
		return fmt.Errorf("invalid owner address: %s", erc721Owner)
	}
	token := common.HexToAddress(erc721Token)
	owner := common.HexToAddress(erc721Owner)

	_, client, caller, err := newReader(log)
	if err != nil {
		return err
	}
	defer client.Close()

	first := []multicall.Call{
		{Target: token, Method: codec.BalanceOf, Args: []interface{}{owner}},
	}

	deriveIndexes := func(prev []multicall.Decoded) ([]multicall.Call, error) {
		if !prev[0].Success || prev[0].Value == nil {
			return nil, nil
		}
		count, ok := prev[0].Value.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected balanceOf result type %T", prev[0].Value)
		}

		n := count.Uint64()
		if n > maxEnumeratedTokens {
			log.Warnw("token count exceeds enumeration limit, truncating",
				"count", n, "limit", maxEnumeratedTokens)
			n = maxEnumeratedTokens
		}

		calls := make([]multicall.Call, n)
		for i := uint64(0); i < n; i++ {
			calls[i] = multicall.Call{
				Target: token,
				Method: codec.TokenOfOwnerByIndex,
				Args:   []interface{}{owner, new(big.Int).SetUint64(i)},
			}
		}
		return calls, nil
	}

	deriveURIs := func(prev []multicall.Decoded) ([]multicall.Call, error) {
		var calls []multicall.Call
		for _, d := range prev {
			if !d.Success || d.Value == nil {
				continue
			}
			id, ok := d.Value.(*big.Int)
			if !ok {
				return nil, fmt.Errorf("unexpected tokenOfOwnerByIndex result type %T", d.Value)
			}
			calls = append(calls, multicall.Call{
				Target: token,
				Method: codec.TokenURI,
				Args:   []interface{}{id},
			})
		}
		return calls, nil
	}

	phases, err := caller.AggregateChain(cmd.Context(), first, true, deriveIndexes, deriveURIs)
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"token": token.Hex(),
		"owner": owner.Hex(),
	}

	if len(phases) > 0 && phases[0][0].Success {
		out["balance"] = bigString(phases[0][0].Value)
	}

	// Phase 3's k-th result corresponds to the k-th successful id of phase 2,
	// both derive steps preserve order.
	if len(phases) == 3 {
		type tokenEntry struct {
			ID  string      `json:"id"`
			URI interface{} `json:"uri"`
		}

		var tokens []tokenEntry
		k := 0
		for _, d := range phases[1] {
			if !d.Success || d.Value == nil {
				continue
			}
			entry := tokenEntry{ID: d.Value.(*big.Int).String()}
			if k < len(phases[2]) && phases[2][k].Success {
				entry.URI = phases[2][k].Value
			}
			tokens = append(tokens, entry)
			k++
		}
		out["tokens"] = tokens
	}

	return printJSON(out)
}
