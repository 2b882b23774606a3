package keys

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLoadRawHex(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)

	hexKey := hex.EncodeToString(crypto.FromECDSA(key))

	for _, raw := range []string{hexKey, "0x" + hexKey} {
		loaded, err := Load(raw, "", "")
		require.Nil(t, err)
		require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(loaded.PublicKey))
	}
}

func TestLoadInvalidHex(t *testing.T) {
	_, err := Load("zz", "", "")
	require.NotNil(t, err)
}

func TestLoadNoSource(t *testing.T) {
	_, err := Load("", "", "")
	require.ErrorIs(t, err, ErrNoKeySource)
}

func TestLoadKeystore(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)

	id, err := uuid.NewRandom()
	require.Nil(t, err)

	keyJSON, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	require.Nil(t, err)

	path := filepath.Join(t.TempDir(), "wallet.json")
	require.Nil(t, os.WriteFile(path, keyJSON, 0o600))

	loaded, err := Load("", path, "hunter2")
	require.Nil(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(loaded.PublicKey))

	_, err = Load("", path, "wrong")
	require.NotNil(t, err)
}

func TestLoadKeystoreMissingFile(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.json"), "pw")
	require.NotNil(t, err)
}
