// Package chain signs and submits Secret Network transactions over the LCD
// REST interface.
package chain

import (
	"errors"
	"fmt"
	"strings"

	bip39 "github.com/cosmos/go-bip39"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Defaults for Secret Network accounts.
const (
	DefaultBech32Prefix = "secret"
	DefaultHDPath       = "m/44'/529'/0'/0/0"
)

// Sentinel errors for chain operations.
var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrBroadcast       = errors.New("broadcast failed")
	ErrTxNotFound      = errors.New("transaction not found")
)

// Wallet is a single secp256k1 account derived from a secret phrase.
type Wallet struct {
	priv    cryptotypes.PrivKey
	address string
}

// NewWallet derives the account at hdPath from mnemonic.
func NewWallet(mnemonic, prefix, hdPath string) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if prefix == "" {
		prefix = DefaultBech32Prefix
	}
	if hdPath == "" {
		hdPath = DefaultHDPath
	}

	seed, err := hd.Secp256k1.Derive()(mnemonic, "", hdPath)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	priv := hd.Secp256k1.Generate()(seed)

	address, err := sdk.Bech32ifyAddressBytes(prefix, priv.PubKey().Address())
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	return &Wallet{priv: priv, address: address}, nil
}

// Address returns the bech32 account address.
func (w *Wallet) Address() string {
	return w.address
}

// PubKey returns the account public key.
func (w *Wallet) PubKey() cryptotypes.PubKey {
	return w.priv.PubKey()
}

// Sign signs bytes with the account key.
func (w *Wallet) Sign(msg []byte) ([]byte, error) {
	return w.priv.Sign(msg)
}
