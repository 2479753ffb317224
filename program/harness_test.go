package program

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dappsuite/ledger"
	"dappsuite/sdk"
)

// startingBalance is generous enough to cover bonds and donations in every
// scenario below.
const startingBalance ledger.Lamports = 1_000_000

// testRuntime wires a runtime over a fresh in-memory store.
func testRuntime(t *testing.T) *Runtime {
	t.Helper()
	return New(ledger.NewMemoryStore(), nil)
}

// newActor mints a funded identity.
func newActor(t *testing.T, r *Runtime) sdk.Address {
	t.Helper()
	kp, err := sdk.NewKeypair()
	require.NoError(t, err)
	addr := kp.Address()
	require.NoError(t, r.Store().Credit(addr, startingBalance))
	return addr
}

func ctxAt(signer sdk.Address, now int64) Context {
	return Context{Signer: signer, Now: now}
}
