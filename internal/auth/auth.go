package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var ErrZeroDelegate = errors.New("delegation target is the zero address")

// Signer produces EIP-7702 authorization tuples for a single account on a
// single chain. Installing code and revoking it are separate entry points:
// SignDelegation refuses the zero address, which only SignRevocation may
// request.
type Signer struct {
	key     *ecdsa.PrivateKey
	chainID *uint256.Int
	address common.Address
}

func NewSigner(key *ecdsa.PrivateKey, chainID *big.Int) (*Signer, error) {
	id, overflow := uint256.FromBig(chainID)
	if overflow {
		return nil, fmt.Errorf("chain ID %s overflows uint256", chainID)
	}

	return &Signer{
		key:     key,
		chainID: id,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// SignDelegation authorizes installing the delegate contract's code at the
// signer's own address. The nonce must be the account nonce at the moment
// the authorization is processed; when the authorization rides its own
// transaction that is the transaction nonce plus one.
func (s *Signer) SignDelegation(delegate common.Address, nonce uint64) (types.SetCodeAuthorization, error) {
	if delegate == (common.Address{}) {
		return types.SetCodeAuthorization{}, ErrZeroDelegate
	}
	return s.sign(delegate, nonce)
}

// SignRevocation authorizes clearing any existing delegation by naming the
// zero address as delegate.
func (s *Signer) SignRevocation(nonce uint64) (types.SetCodeAuthorization, error) {
	return s.sign(common.Address{}, nonce)
}

func (s *Signer) sign(delegate common.Address, nonce uint64) (types.SetCodeAuthorization, error) {
	auth, err := types.SignSetCode(s.key, types.SetCodeAuthorization{
		ChainID: *s.chainID,
		Address: delegate,
		Nonce:   nonce,
	})
	if err != nil {
		return types.SetCodeAuthorization{}, fmt.Errorf("failed to sign authorization: %w", err)
	}
	return auth, nil
}

// SignTx signs an assembled transaction with the account key.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID.ToBig()), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// DelegatedTo reports the delegate address encoded in an account's code, if
// the code is an EIP-7702 delegation designator (0xef0100 || address).
func DelegatedTo(code []byte) (common.Address, bool) {
	return types.ParseDelegation(code)
}
