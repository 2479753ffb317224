package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"dappsuite/sdk"

	badger "github.com/dgraph-io/badger/v4"
)

// Key prefixes inside the badger keyspace, one byte per column.
const (
	kAccount   byte = 0x01
	kWallet    byte = 0x02
	kTombstone byte = 0x03
)

// BadgerStore persists the ledger in a badger database. With an empty dir it
// runs fully in memory, which is what the dev server and tests use.
type BadgerStore struct {
	mu     sync.Mutex
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerStore opens (or creates) the ledger database under dir. An empty
// dir selects badger's in-memory mode.
func NewBadgerStore(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(newBadgerLogger(logger)).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (b *BadgerStore) CloseStore() error {
	return b.db.Close()
}

func accountKey(addr sdk.Address) []byte {
	return append([]byte{kAccount}, addr.Bytes()...)
}

func walletKey(addr sdk.Address) []byte {
	return append([]byte{kWallet}, addr.Bytes()...)
}

func tombstoneKey(addr sdk.Address) []byte {
	return append([]byte{kTombstone}, addr.Bytes()...)
}

func getAccount(txn *badger.Txn, addr sdk.Address) (*Account, error) {
	item, err := txn.Get(accountKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	var acct Account
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &acct)
	})
	if err != nil {
		return nil, fmt.Errorf("decode account %s: %w", addr, err)
	}
	return &acct, nil
}

func putAccount(txn *badger.Txn, acct *Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", acct.Address, err)
	}
	return txn.Set(accountKey(acct.Address), raw)
}

func getBalance(txn *badger.Txn, addr sdk.Address) (Lamports, error) {
	item, err := txn.Get(walletKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var bal Lamports
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("wallet value must be 8 bytes, got %d", len(val))
		}
		bal = Lamports(binary.LittleEndian.Uint64(val))
		return nil
	})
	return bal, err
}

func putBalance(txn *badger.Txn, addr sdk.Address, bal Lamports) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(bal))
	return txn.Set(walletKey(addr), buf[:])
}

func (b *BadgerStore) Create(acct *Account, payer sdk.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tombstoneKey(acct.Address)); err == nil {
			return ErrAddressRetired
		}
		if _, err := txn.Get(accountKey(acct.Address)); err == nil {
			return ErrAccountExists
		}
		bond := RentExempt(len(acct.Data))
		bal, err := getBalance(txn, payer)
		if err != nil {
			return err
		}
		if bal < bond {
			return ErrInsufficientFunds
		}
		if err := putBalance(txn, payer, bal-bond); err != nil {
			return err
		}
		acct.Lamports += bond
		acct.Version = 1
		return putAccount(txn, acct)
	})
}

func (b *BadgerStore) Read(addr sdk.Address) (*Account, error) {
	var acct *Account
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		acct, err = getAccount(txn, addr)
		return err
	})
	return acct, err
}

func (b *BadgerStore) Write(acct *Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		stored, err := getAccount(txn, acct.Address)
		if err != nil {
			return err
		}
		if stored.Version != acct.Version {
			return ErrStaleAccount
		}
		acct.Version++
		return putAccount(txn, acct)
	})
}

func (b *BadgerStore) Close(addr sdk.Address, refundTo sdk.Address, retire bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		acct, err := getAccount(txn, addr)
		if err != nil {
			return err
		}
		bal, err := getBalance(txn, refundTo)
		if err != nil {
			return err
		}
		if err := putBalance(txn, refundTo, bal+acct.Lamports); err != nil {
			return err
		}
		if err := txn.Delete(accountKey(addr)); err != nil {
			return err
		}
		if retire {
			return txn.Set(tombstoneKey(addr), []byte{1})
		}
		return nil
	})
}

func (b *BadgerStore) OwnerScan(program sdk.Tag, authority sdk.Address) ([]*Account, error) {
	var out []*Account
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{kAccount}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var acct Account
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &acct)
			})
			if err != nil {
				return err
			}
			if acct.Program == program && acct.Authority == authority {
				out = append(out, acct.clone())
			}
		}
		return nil
	})
	return out, err
}

func (b *BadgerStore) Balance(addr sdk.Address) (Lamports, error) {
	var bal Lamports
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		bal, err = getBalance(txn, addr)
		return err
	})
	return bal, err
}

func (b *BadgerStore) Credit(addr sdk.Address, amount Lamports) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		bal, err := getBalance(txn, addr)
		if err != nil {
			return err
		}
		return putBalance(txn, addr, bal+amount)
	})
}

func (b *BadgerStore) Debit(addr sdk.Address, amount Lamports) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		bal, err := getBalance(txn, addr)
		if err != nil {
			return err
		}
		if bal < amount {
			return ErrInsufficientFunds
		}
		return putBalance(txn, addr, bal-amount)
	})
}

// badgerLogger adapts badger's logger interface onto slog.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
