package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"dappsuite/ledger"
	"dappsuite/sdk"

	"github.com/google/uuid"
)

// Runtime executes program operations against the account store. It is the
// single writer: every mutating entry point runs under one lock, mirroring
// the one-transaction-at-a-time execution model of the host ledger. The
// version checks in the store stay on regardless, so a second Runtime sharing
// the store can never double-allocate a counter id.
type Runtime struct {
	mu    sync.Mutex
	store ledger.Store
	log   *slog.Logger

	platformAddr sdk.Address
	platformBps  uint32
}

// New wires a runtime over a store. A nil logger discards events.
func New(store ledger.Store, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Runtime{store: store, log: logger}
}

// maxPlatformFeeBps caps the withdrawal fee at 10%.
const maxPlatformFeeBps = 1000

// ConfigurePlatform sets the address and fee (basis points) that take a cut
// of campaign withdrawals. Zero fee with a zero address disables the cut.
func (r *Runtime) ConfigurePlatform(addr sdk.Address, feeBps uint32) error {
	if feeBps > maxPlatformFeeBps {
		return ErrInvalidPlatformFee
	}
	if feeBps > 0 && addr.IsZero() {
		return ErrInvalidPlatformAddress
	}
	r.platformAddr = addr
	r.platformBps = feeBps
	return nil
}

// Store exposes the backing store for read paths and the API layer.
func (r *Runtime) Store() ledger.Store {
	return r.store
}

// Context carries the per-transaction environment: who signed, what time the
// ledger clock shows, and the transaction id stamped on the receipt.
type Context struct {
	Signer sdk.Address
	Now    int64
	TxID   string
}

// Receipt acknowledges a committed transition.
type Receipt struct {
	TxID    string      `json:"tx_id"`
	Address sdk.Address `json:"address"`
}

// begin fills context defaults so callers can pass a bare signer.
func (r *Runtime) begin(ctx *Context) {
	if ctx.TxID == "" {
		ctx.TxID = uuid.NewString()
	}
	if ctx.Now == 0 {
		ctx.Now = time.Now().Unix()
	}
}

// authorize is the cross-cutting guard: the transaction signer must match the
// stored authority, checked before any mutation happens.
func authorize(signer, authority sdk.Address) error {
	if signer != authority {
		return ErrUnauthorized
	}
	return nil
}

// -----------------------------------------------------------------------------
// Record persistence helpers
// -----------------------------------------------------------------------------
//
// Records are JSON blobs inside accounts, one struct per entity type; the
// per-entity save/load wrappers in each program file build on these.

// createRecord allocates a fresh account for a record, payer funds the bond.
func (r *Runtime) createRecord(ctx Context, tag sdk.Tag, addr, authority sdk.Address, rec any) (*ledger.Account, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", tag, err)
	}
	acct := &ledger.Account{
		Address:   addr,
		Program:   tag,
		Authority: authority,
		Data:      data,
		CreatedAt: ctx.Now,
		UpdatedAt: ctx.Now,
	}
	if err := r.store.Create(acct, ctx.Signer); err != nil {
		return nil, err
	}
	return acct, nil
}

// loadRecord reads an account and decodes its record into rec.
func (r *Runtime) loadRecord(addr sdk.Address, rec any) (*ledger.Account, error) {
	acct, err := r.store.Read(addr)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(acct.Data, rec); err != nil {
		return nil, fmt.Errorf("decode record at %s: %w", addr, err)
	}
	return acct, nil
}

// saveRecord re-encodes a record into its account and writes the snapshot,
// carrying the version observed at load for the staleness check.
func (r *Runtime) saveRecord(ctx Context, acct *ledger.Account, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record at %s: %w", acct.Address, err)
	}
	acct.Data = data
	acct.UpdatedAt = ctx.Now
	return r.store.Write(acct)
}

// decodeInto unmarshals an account's record payload.
func decodeInto(acct *ledger.Account, rec any) error {
	if err := json.Unmarshal(acct.Data, rec); err != nil {
		return fmt.Errorf("decode record at %s: %w", acct.Address, err)
	}
	return nil
}

// recordBond returns the rent bond a record of this shape will require.
func recordBond(rec any) ledger.Lamports {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0
	}
	return ledger.RentExempt(len(data))
}

// notFound translates the store-level miss; some programs remap it further
// (e.g. CampaignNotFound).
func notFound(err error) bool {
	return errors.Is(err, ledger.ErrAccountNotFound)
}

// emit writes the short pipe-delimited event line observers tail.
// Example: emit("nc", "addr", a.String(), "by", author.String())
func (r *Runtime) emit(event string, args ...any) {
	r.log.Info(event, args...)
}
