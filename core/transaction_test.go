package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

func TestTransactionSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	tx, err := core.NewTransaction("test-chain", core.TxStartGame, pub.Hex(), 0, core.StartGamePayload{
		Opponent: "deadbeef",
		HostMove: core.Rock,
	})
	require.NoError(t, err)
	tx.Sign(priv)

	require.NotEmpty(t, tx.ID)
	assert.Equal(t, tx.Hash(), tx.ID)
	require.NoError(t, tx.Verify())

	// Tamper with the nonce to check that verification catches it.
	tx.Nonce = 1
	assert.Error(t, tx.Verify())
}

func TestTransactionVerify_ChainIDCovered(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	tx, err := core.NewTransaction("chain-a", core.TxInstantiate, pub.Hex(), 0, core.InstantiatePayload{})
	require.NoError(t, err)
	tx.Sign(priv)

	tx.ChainID = "chain-b"
	assert.Error(t, tx.Verify())
}

func TestTransactionVerify_BadFrom(t *testing.T) {
	tx := &core.Transaction{Type: core.TxInstantiate}
	assert.Error(t, tx.Verify())

	tx.From = "not-hex"
	assert.Error(t, tx.Verify())
}

func TestTransactionVerify_RejectsNonCanonicalFrom(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	for strings.ToUpper(pub.Hex()) == pub.Hex() {
		priv, pub, err = crypto.GenerateKeyPair()
		require.NoError(t, err)
	}

	// Given: a message signed by the right key but naming it in uppercase hex
	tx, err := core.NewTransaction("test-chain", core.TxInstantiate, strings.ToUpper(pub.Hex()), 0, core.InstantiatePayload{})
	require.NoError(t, err)
	tx.Sign(priv)

	// Then: the signature alone is not enough
	err = tx.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lowercase")
}
