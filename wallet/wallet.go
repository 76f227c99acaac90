package wallet

import (
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

// Wallet holds a key pair and provides transaction-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key: the wallet's identity.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// NewTx creates a signed transaction. chainID must match the target network.
// nonce should match the sender's current nonce.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.pub.Hex(), nonce, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Instantiate creates a signed instantiate message; the wallet becomes owner.
func (w *Wallet) Instantiate(chainID string, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxInstantiate, nonce, core.InstantiatePayload{})
}

// StartGame creates a signed start_game message inviting opponent.
func (w *Wallet) StartGame(chainID, opponent string, move core.Move, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxStartGame, nonce, core.StartGamePayload{
		Opponent: opponent,
		HostMove: move,
	})
}

// SubmitMove creates a signed submit_move message answering host's game.
func (w *Wallet) SubmitMove(chainID, host string, move core.Move, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxSubmitMove, nonce, core.SubmitMovePayload{
		Host: host,
		Move: move,
	})
}
