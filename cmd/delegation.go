package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/taikoxyz/batchwallet/internal/sender"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Install the delegate contract's code at the account's own address",
	RunE:  runAuthorize,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke any delegation installed at the account's own address",
	RunE:  runRevoke,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the account's current delegation",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(statusCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, client, snd, err := newSender(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.DelegateAddress == (common.Address{}) {
		return fmt.Errorf("delegate contract address is required (use --delegate or set DELEGATE_ADDRESS)")
	}

	if current, err := snd.Delegation(cmd.Context()); err == nil {
		if current == cfg.DelegateAddress {
			log.Infow("delegation already installed", "delegate", current.Hex())
			return printJSON(map[string]interface{}{
				"delegate":  current.Hex(),
				"unchanged": true,
			})
		}
		log.Infow("replacing existing delegation", "current", current.Hex())
	}

	hash, err := snd.Authorize(cmd.Context(), cfg.DelegateAddress)
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"txHash":   hash.Hex(),
		"delegate": cfg.DelegateAddress.Hex(),
		"dryRun":   cfg.DryRun,
	})
}

func runRevoke(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, client, snd, err := newSender(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := snd.Delegation(cmd.Context()); errors.Is(err, sender.ErrNotDelegated) {
		log.Info("account has no delegation, nothing to revoke")
		return printJSON(map[string]interface{}{"unchanged": true})
	}

	hash, err := snd.Revoke(cmd.Context())
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"txHash": hash.Hex(),
		"dryRun": cfg.DryRun,
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	_, client, snd, err := newSender(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer client.Close()

	delegate, err := snd.Delegation(cmd.Context())
	if errors.Is(err, sender.ErrNotDelegated) {
		return printJSON(map[string]interface{}{"delegated": false})
	}
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"delegated": true,
		"delegate":  delegate.Hex(),
	})
}
