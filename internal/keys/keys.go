package keys

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

var ErrNoKeySource = errors.New("no key source: provide a private key or a keystore file")

// Load resolves the account key from one of the supported sources: a raw
// hex private key, or an encrypted keystore JSON file. The keystore
// password is prompted interactively when not supplied.
func Load(rawHex, keystorePath, password string) (*ecdsa.PrivateKey, error) {
	if rawHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(rawHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		return key, nil
	}

	if keystorePath == "" {
		return nil, ErrNoKeySource
	}

	keyJSON, err := os.ReadFile(keystorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}

	if password == "" {
		if password, err = promptPassword(); err != nil {
			return nil, err
		}
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Keystore password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
