package ledger_test

import (
	"testing"

	"dappsuite/ledger"
	"dappsuite/sdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the semantics tests run against every backend
func backends(t *testing.T) map[string]ledger.Store {
	t.Helper()
	bs, err := ledger.NewBadgerStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.CloseStore() })
	return map[string]ledger.Store{
		"memory": ledger.NewMemoryStore(),
		"badger": bs,
	}
}

func fundedWallet(t *testing.T, s ledger.Store) sdk.Address {
	t.Helper()
	kp, err := sdk.NewKeypair()
	require.NoError(t, err)
	require.NoError(t, s.Credit(kp.Address(), 1_000_000))
	return kp.Address()
}

func newAccount(owner sdk.Address, program sdk.Tag, data []byte) *ledger.Account {
	return &ledger.Account{
		Address:   sdk.Derive(program, sdk.SeedAddress(owner), sdk.SeedString(string(data))),
		Program:   program,
		Authority: owner,
		Data:      data,
	}
}

func TestCreateReadWrite(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			owner := fundedWallet(t, s)
			acct := newAccount(owner, "note", []byte("hello"))

			require.NoError(t, s.Create(acct, owner))
			assert.EqualValues(t, 1, acct.Version)
			assert.Equal(t, ledger.RentExempt(5), acct.Lamports)

			// bond left the payer wallet
			bal, err := s.Balance(owner)
			require.NoError(t, err)
			assert.Equal(t, ledger.Lamports(1_000_000)-ledger.RentExempt(5), bal)

			got, err := s.Read(acct.Address)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), got.Data)

			got.Data = []byte("world")
			require.NoError(t, s.Write(got))

			back, err := s.Read(acct.Address)
			require.NoError(t, err)
			assert.Equal(t, []byte("world"), back.Data)
			assert.EqualValues(t, 2, back.Version)
		})
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			owner := fundedWallet(t, s)
			require.NoError(t, s.Create(newAccount(owner, "note", []byte("t")), owner))
			err := s.Create(newAccount(owner, "note", []byte("t")), owner)
			assert.ErrorIs(t, err, ledger.ErrAccountExists)
		})
	}
}

func TestCreateWithoutFundsFails(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kp, err := sdk.NewKeypair()
			require.NoError(t, err)
			owner := kp.Address()
			err = s.Create(newAccount(owner, "note", []byte("t")), owner)
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		})
	}
}

func TestStaleWriteRejected(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			owner := fundedWallet(t, s)
			acct := newAccount(owner, "counter", []byte("0"))
			require.NoError(t, s.Create(acct, owner))

			// two readers observe version 1
			first, err := s.Read(acct.Address)
			require.NoError(t, err)
			second, err := s.Read(acct.Address)
			require.NoError(t, err)

			first.Data = []byte("1")
			require.NoError(t, s.Write(first))

			// the slower writer must fail, not silently double-allocate
			second.Data = []byte("1")
			assert.ErrorIs(t, s.Write(second), ledger.ErrStaleAccount)
		})
	}
}

func TestCloseRefundsAndFrees(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			owner := fundedWallet(t, s)
			acct := newAccount(owner, "note", []byte("bye"))
			require.NoError(t, s.Create(acct, owner))

			require.NoError(t, s.Close(acct.Address, owner, false))

			bal, err := s.Balance(owner)
			require.NoError(t, err)
			assert.Equal(t, ledger.Lamports(1_000_000), bal)

			_, err = s.Read(acct.Address)
			assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

			// non-retired address may be recreated with the same inputs
			require.NoError(t, s.Create(newAccount(owner, "note", []byte("bye")), owner))
		})
	}
}

func TestCloseRetireBlocksRecreation(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			owner := fundedWallet(t, s)
			acct := newAccount(owner, "campaign", []byte("c"))
			require.NoError(t, s.Create(acct, owner))
			require.NoError(t, s.Close(acct.Address, owner, true))

			err := s.Create(newAccount(owner, "campaign", []byte("c")), owner)
			assert.ErrorIs(t, err, ledger.ErrAddressRetired)
		})
	}
}

func TestWriteOrCloseMissingAccount(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			owner := fundedWallet(t, s)
			missing := newAccount(owner, "note", []byte("never created"))
			assert.ErrorIs(t, s.Write(missing), ledger.ErrAccountNotFound)
			assert.ErrorIs(t, s.Close(missing.Address, owner, false), ledger.ErrAccountNotFound)
		})
	}
}

func TestOwnerScanFiltersByAuthorityAndProgram(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			alice := fundedWallet(t, s)
			bob := fundedWallet(t, s)

			require.NoError(t, s.Create(newAccount(alice, "note", []byte("a1")), alice))
			require.NoError(t, s.Create(newAccount(alice, "note", []byte("a2")), alice))
			require.NoError(t, s.Create(newAccount(alice, "todo", []byte("a3")), alice))
			require.NoError(t, s.Create(newAccount(bob, "note", []byte("b1")), bob))

			notes, err := s.OwnerScan("note", alice)
			require.NoError(t, err)
			assert.Len(t, notes, 2)
			for _, acct := range notes {
				assert.Equal(t, alice, acct.Authority)
				assert.Equal(t, sdk.Tag("note"), acct.Program)
			}
		})
	}
}

func TestTransferDebitFirst(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			from := fundedWallet(t, s)
			to := fundedWallet(t, s)

			require.NoError(t, ledger.Transfer(s, from, to, 250_000))
			fromBal, _ := s.Balance(from)
			toBal, _ := s.Balance(to)
			assert.Equal(t, ledger.Lamports(750_000), fromBal)
			assert.Equal(t, ledger.Lamports(1_250_000), toBal)

			err := ledger.Transfer(s, from, to, 10_000_000)
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
			// the failed transfer must not have moved anything
			fromBal, _ = s.Balance(from)
			assert.Equal(t, ledger.Lamports(750_000), fromBal)
		})
	}
}
