package sender

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taikoxyz/batchwallet/internal/auth"
	"github.com/taikoxyz/batchwallet/internal/batch"
)

var (
	testChainID  = big.NewInt(11155111)
	testDelegate = common.HexToAddress("0x4444444444444444444444444444444444444444")
	recipientA   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	recipientB   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type stubBackend struct {
	nonce       uint64
	code        []byte
	codeErr     error
	estimateErr error

	sent          *types.Transaction
	callContracts int
}

func (s *stubBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return s.nonce, nil
}

func (s *stubBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (s *stubBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (s *stubBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if s.estimateErr != nil {
		return 0, s.estimateErr
	}
	return 100_000, nil
}

func (s *stubBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	s.callContracts++
	return nil, nil
}

func (s *stubBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return s.code, s.codeErr
}

func (s *stubBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	s.sent = tx
	return nil
}

func (s *stubBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	if s.sent == nil {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

func newTestSender(t *testing.T, backend *stubBackend, dryRun bool) *Sender {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)

	signer, err := auth.NewSigner(key, testChainID)
	require.Nil(t, err)

	return New(backend, signer, testChainID, zap.NewNop().Sugar(), dryRun)
}

func testCalls() []batch.ExecutionCall {
	return []batch.ExecutionCall{
		{Target: recipientA, Value: big.NewInt(1)},
		{Target: recipientB, Value: big.NewInt(2)},
	}
}

func TestAuthorizeSendsSelfAddressedSetCodeTx(t *testing.T) {
	backend := &stubBackend{nonce: 7}
	s := newTestSender(t, backend, false)

	hash, err := s.Authorize(context.Background(), testDelegate)
	require.Nil(t, err)
	require.NotEqual(t, common.Hash{}, hash)

	tx := backend.sent
	require.NotNil(t, tx)
	require.Equal(t, uint8(types.SetCodeTxType), tx.Type())
	require.Equal(t, s.signer.Address(), *tx.To())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Empty(t, tx.Data())

	authList := tx.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	require.Equal(t, testDelegate, authList[0].Address)
	// The transaction consumes nonce 7, so the authorization must carry 8.
	require.Equal(t, uint64(8), authList[0].Nonce)

	authority, err := authList[0].Authority()
	require.Nil(t, err)
	require.Equal(t, s.signer.Address(), authority)
}

func TestRevokeAuthorizesZeroAddress(t *testing.T) {
	backend := &stubBackend{nonce: 3}
	s := newTestSender(t, backend, false)

	_, err := s.Revoke(context.Background())
	require.Nil(t, err)

	authList := backend.sent.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	require.Equal(t, common.Address{}, authList[0].Address)
	require.Equal(t, uint64(4), authList[0].Nonce)
}

func TestExecuteBatchSkipsAuthorizationWhenDelegated(t *testing.T) {
	s := newTestSender(t, &stubBackend{}, false)
	backend := s.client.(*stubBackend)
	backend.code = types.AddressToDelegation(testDelegate)

	_, err := s.ExecuteBatch(context.Background(), testDelegate, testCalls())
	require.Nil(t, err)

	tx := backend.sent
	require.NotNil(t, tx)
	require.Empty(t, tx.SetCodeAuthorizations())

	wantData, err := batch.EncodeExecute(batch.ModeDefault, testCalls())
	require.Nil(t, err)
	require.Equal(t, wantData, tx.Data())

	// Self-call: sub-call values are paid from the account's own balance.
	require.Equal(t, s.signer.Address(), *tx.To())
	require.Zero(t, tx.Value().Sign())
}

func TestExecuteBatchAttachesAuthorizationWhenNotDelegated(t *testing.T) {
	backend := &stubBackend{estimateErr: errors.New("execution reverted")}
	s := newTestSender(t, backend, false)

	_, err := s.ExecuteBatch(context.Background(), testDelegate, testCalls())
	require.Nil(t, err)

	tx := backend.sent
	require.NotNil(t, tx)

	authList := tx.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	require.Equal(t, testDelegate, authList[0].Address)

	// Estimation cannot see the pending delegation, so the fallback limit
	// applies.
	require.Equal(t, fallbackGasLimit, tx.Gas())
}

func TestExecuteBatchReplacesForeignDelegation(t *testing.T) {
	backend := &stubBackend{code: types.AddressToDelegation(recipientA)}
	s := newTestSender(t, backend, false)

	_, err := s.ExecuteBatch(context.Background(), testDelegate, testCalls())
	require.Nil(t, err)

	authList := backend.sent.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	require.Equal(t, testDelegate, authList[0].Address)
}

func TestExecuteBatchRejectsEmptyBatch(t *testing.T) {
	backend := &stubBackend{}
	s := newTestSender(t, backend, false)

	_, err := s.ExecuteBatch(context.Background(), testDelegate, nil)
	require.ErrorIs(t, err, batch.ErrEmptyBatch)
	require.Nil(t, backend.sent)
}

func TestEstimateFailureWithoutAuthorizationIsFatal(t *testing.T) {
	backend := &stubBackend{
		code:        types.AddressToDelegation(testDelegate),
		estimateErr: errors.New("execution reverted"),
	}
	s := newTestSender(t, backend, false)

	_, err := s.ExecuteBatch(context.Background(), testDelegate, testCalls())
	require.NotNil(t, err)
	require.Nil(t, backend.sent)
}

func TestDryRunSimulatesWithoutSending(t *testing.T) {
	backend := &stubBackend{}
	s := newTestSender(t, backend, true)

	hash, err := s.ExecuteBatch(context.Background(), testDelegate, testCalls())
	require.Nil(t, err)
	require.NotEqual(t, common.Hash{}, hash)

	require.Nil(t, backend.sent)
	require.Equal(t, 1, backend.callContracts)
}

func TestDelegation(t *testing.T) {
	backend := &stubBackend{}
	s := newTestSender(t, backend, false)

	_, err := s.Delegation(context.Background())
	require.ErrorIs(t, err, ErrNotDelegated)

	backend.code = types.AddressToDelegation(testDelegate)
	delegate, err := s.Delegation(context.Background())
	require.Nil(t, err)
	require.Equal(t, testDelegate, delegate)
}
