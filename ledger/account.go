package ledger

import (
	"errors"

	"dappsuite/sdk"
)

// -----------------------------------------------------------------------------
// Accounts & rent
// -----------------------------------------------------------------------------

// Lamports is the smallest balance unit. Wallets hold free lamports; accounts
// hold the rent bond plus any funds a program parks on them.
type Lamports uint64

const (
	// rentBase is the flat part of the storage bond.
	rentBase Lamports = 1024
	// rentPerByte scales the bond by record size.
	rentPerByte Lamports = 7
)

// RentExempt returns the storage bond required to keep a record of the given
// size alive. Charged on Create, refunded on Close.
func RentExempt(dataLen int) Lamports {
	return rentBase + Lamports(dataLen)*rentPerByte
}

// Account is one storage slot: a typed record plus its lamport balance.
//
// Authority is the owner identity and always sits in this fixed header slot,
// never inside Data, so OwnerScan can enumerate one owner's records with a
// plain equality filter. Version implements the optimistic-concurrency check:
// a Write presenting a version other than the stored one fails ErrStaleAccount.
type Account struct {
	Address   sdk.Address `json:"address"`
	Program   sdk.Tag     `json:"program"`
	Authority sdk.Address `json:"authority"`
	Data      []byte      `json:"data"`
	Lamports  Lamports    `json:"lamports"`
	Version   uint64      `json:"version"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt int64       `json:"updated_at"`
}

// clone keeps store internals from leaking mutable state to callers.
func (a *Account) clone() *Account {
	cp := *a
	cp.Data = append([]byte(nil), a.Data...)
	return &cp
}

// Store-level failures. Program-level error codes live in package program;
// these cover only the storage contract itself.
var (
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrStaleAccount      = errors.New("account version is stale")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAddressRetired    = errors.New("address retired")
)

// Store is the persistent keyed account storage. All mutations are atomic per
// call; cross-account consistency is the caller's job (the program runtime
// serializes whole transactions).
type Store interface {
	// Create charges payer the rent bond for the record size, parks it on the
	// account and persists it. Fails ErrAccountExists for live addresses and
	// ErrAddressRetired for addresses closed with retire=true.
	Create(acct *Account, payer sdk.Address) error
	// Read returns a copy of the record, ErrAccountNotFound when absent.
	Read(addr sdk.Address) (*Account, error)
	// Write persists a new snapshot. acct.Version must match the stored
	// version (the one observed at Read) or the write fails ErrStaleAccount.
	Write(acct *Account) error
	// Close deletes the record and refunds its full lamport balance (bond
	// included) to refundTo. retire=true permanently blocks recreation of the
	// address; retire=false lets the same derivation inputs create it again.
	Close(addr sdk.Address, refundTo sdk.Address, retire bool) error
	// OwnerScan lists all live accounts of one program whose authority header
	// matches, the read path behind every "my notes/tasks/posts" listing.
	OwnerScan(program sdk.Tag, authority sdk.Address) ([]*Account, error)

	// Wallet balances for plain identities (no record attached).
	Balance(addr sdk.Address) (Lamports, error)
	Credit(addr sdk.Address, amount Lamports) error
	Debit(addr sdk.Address, amount Lamports) error
}

// Transfer moves free lamports between two wallets, debit first so a missing
// balance can never mint funds.
func Transfer(s Store, from, to sdk.Address, amount Lamports) error {
	if err := s.Debit(from, amount); err != nil {
		return err
	}
	return s.Credit(to, amount)
}
