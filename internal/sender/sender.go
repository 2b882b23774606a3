package sender

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/taikoxyz/batchwallet/internal/auth"
	"github.com/taikoxyz/batchwallet/internal/batch"
)

// Gas limit used when estimation is impossible because the delegation the
// transaction itself installs is not visible to eth_estimateGas yet.
const fallbackGasLimit = uint64(1_000_000)

const receiptTimeout = 2 * time.Minute

var ErrNotDelegated = errors.New("account has no delegation")

// Backend is the write-side transport dependency, satisfied by
// *ethclient.Client.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Sender assembles and submits the self-addressed transactions of the
// delegated account: authorization installs, revocations, and batched
// execution. Signing keys never leave this package's Signer collaborator.
type Sender struct {
	client  Backend
	signer  *auth.Signer
	chainID *big.Int
	log     *zap.SugaredLogger
	dryRun  bool
}

func New(client Backend, signer *auth.Signer, chainID *big.Int, log *zap.SugaredLogger, dryRun bool) *Sender {
	return &Sender{
		client:  client,
		signer:  signer,
		chainID: chainID,
		log:     log,
		dryRun:  dryRun,
	}
}

// Authorize installs the delegate contract's code at the account's own
// address. The authorization nonce is the transaction nonce plus one since
// the transaction itself consumes the account nonce before the
// authorization is processed.
func (s *Sender) Authorize(ctx context.Context, delegate common.Address) (common.Hash, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	authorization, err := s.signer.SignDelegation(delegate, nonce+1)
	if err != nil {
		return common.Hash{}, err
	}

	s.log.Infow("authorizing delegation", "delegate", delegate.Hex(), "nonce", nonce)
	return s.send(ctx, nonce, nil, []types.SetCodeAuthorization{authorization})
}

// Revoke clears any existing delegation by authorizing the zero address.
func (s *Sender) Revoke(ctx context.Context) (common.Hash, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	authorization, err := s.signer.SignRevocation(nonce + 1)
	if err != nil {
		return common.Hash{}, err
	}

	s.log.Infow("revoking delegation", "nonce", nonce)
	return s.send(ctx, nonce, nil, []types.SetCodeAuthorization{authorization})
}

// ExecuteBatch submits one atomic batch of sub-calls through the delegate's
// execute entry point. If the account is not yet delegated to the expected
// contract, a fresh authorization rides the same transaction.
func (s *Sender) ExecuteBatch(
	ctx context.Context,
	delegate common.Address,
	calls []batch.ExecutionCall,
) (common.Hash, error) {
	data, err := batch.EncodeExecute(batch.ModeDefault, calls)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	var authList []types.SetCodeAuthorization
	current, err := s.Delegation(ctx)
	switch {
	case err == nil && current == delegate:
		s.log.Debugw("delegation already installed", "delegate", delegate.Hex())
	default:
		authorization, err := s.signer.SignDelegation(delegate, nonce+1)
		if err != nil {
			return common.Hash{}, err
		}
		authList = append(authList, authorization)
		s.log.Infow("attaching delegation authorization", "delegate", delegate.Hex())
	}

	s.log.Infow("executing batch", "calls", len(calls), "nonce", nonce)
	return s.send(ctx, nonce, data, authList)
}

// Delegation returns the delegate address currently installed at the
// account, or ErrNotDelegated.
func (s *Sender) Delegation(ctx context.Context) (common.Address, error) {
	code, err := s.client.CodeAt(ctx, s.signer.Address(), nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get account code: %w", err)
	}

	delegate, ok := auth.DelegatedTo(code)
	if !ok {
		return common.Address{}, ErrNotDelegated
	}
	return delegate, nil
}

// BuildSetCodeTx assembles the unsigned self-addressed EIP-7702 transaction
// for the given payload and authorization list.
func (s *Sender) BuildSetCodeTx(
	ctx context.Context,
	nonce uint64,
	data []byte,
	authList []types.SetCodeAuthorization,
) (*types.Transaction, error) {
	tipCap, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	feeCap, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	if feeCap.Cmp(tipCap) < 0 {
		feeCap = tipCap
	}

	self := s.signer.Address()
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: self,
		To:   &self,
		Data: data,
	})
	if err != nil {
		// Estimation runs against current state and cannot see a delegation
		// that this transaction installs.
		if len(authList) == 0 {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
		s.log.Debugw("gas estimation failed with pending authorization, using fallback limit",
			"gasLimit", fallbackGasLimit, "error", err)
		gasLimit = fallbackGasLimit
	}

	return types.NewTx(&types.SetCodeTx{
		ChainID:   uint256.MustFromBig(s.chainID),
		Nonce:     nonce,
		GasTipCap: uint256.MustFromBig(tipCap),
		GasFeeCap: uint256.MustFromBig(feeCap),
		Gas:       gasLimit,
		To:        self,
		Value:     new(uint256.Int),
		Data:      data,
		AuthList:  authList,
	}), nil
}

func (s *Sender) send(
	ctx context.Context,
	nonce uint64,
	data []byte,
	authList []types.SetCodeAuthorization,
) (common.Hash, error) {
	if s.dryRun {
		return s.simulate(ctx, data)
	}

	tx, err := s.BuildSetCodeTx(ctx, nonce, data, authList)
	if err != nil {
		return common.Hash{}, err
	}

	signedTx, err := s.signer.SignTx(tx)
	if err != nil {
		return common.Hash{}, err
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.log.Infow("transaction sent", "hash", signedTx.Hash().Hex())

	receipt, err := s.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return common.Hash{}, fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}

	return signedTx.Hash(), nil
}

// simulate validates the payload with eth_call instead of sending, like a
// transaction dry run.
func (s *Sender) simulate(ctx context.Context, data []byte) (common.Hash, error) {
	self := s.signer.Address()
	msg := ethereum.CallMsg{From: self, To: &self, Data: data}

	result, err := s.client.CallContract(ctx, msg, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("[DRY RUN] call failed: %w", err)
	}

	s.log.Infow("[DRY RUN] transaction simulation successful",
		"callDataSize", len(data), "resultSize", len(result))

	return common.BytesToHash([]byte("dry-run-simulation")), nil
}

func (s *Sender) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = receiptTimeout

	err := backoff.Retry(func() error {
		r, err := s.client.TransactionReceipt(ctx, txHash)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, err
	}

	return receipt, nil
}
