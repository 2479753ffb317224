package ledger

import (
	"sync"

	"dappsuite/sdk"
)

// MemoryStore keeps everything in maps. It is the default backend for tests
// and the dev server; semantics are identical to the badger backend.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[sdk.Address]*Account
	wallets  map[sdk.Address]Lamports
	retired  map[sdk.Address]bool
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[sdk.Address]*Account),
		wallets:  make(map[sdk.Address]Lamports),
		retired:  make(map[sdk.Address]bool),
	}
}

func (m *MemoryStore) Create(acct *Account, payer sdk.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retired[acct.Address] {
		return ErrAddressRetired
	}
	if _, ok := m.accounts[acct.Address]; ok {
		return ErrAccountExists
	}
	bond := RentExempt(len(acct.Data))
	if m.wallets[payer] < bond {
		return ErrInsufficientFunds
	}
	m.wallets[payer] -= bond

	acct.Lamports += bond
	acct.Version = 1
	m.accounts[acct.Address] = acct.clone()
	return nil
}

func (m *MemoryStore) Read(addr sdk.Address) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.clone(), nil
}

func (m *MemoryStore) Write(acct *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[acct.Address]
	if !ok {
		return ErrAccountNotFound
	}
	if stored.Version != acct.Version {
		return ErrStaleAccount
	}
	acct.Version++
	m.accounts[acct.Address] = acct.clone()
	return nil
}

func (m *MemoryStore) Close(addr sdk.Address, refundTo sdk.Address, retire bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[addr]
	if !ok {
		return ErrAccountNotFound
	}
	m.wallets[refundTo] += acct.Lamports
	delete(m.accounts, addr)
	if retire {
		m.retired[addr] = true
	}
	return nil
}

func (m *MemoryStore) OwnerScan(program sdk.Tag, authority sdk.Address) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Account
	for _, acct := range m.accounts {
		if acct.Program == program && acct.Authority == authority {
			out = append(out, acct.clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) Balance(addr sdk.Address) (Lamports, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wallets[addr], nil
}

func (m *MemoryStore) Credit(addr sdk.Address, amount Lamports) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[addr] += amount
	return nil
}

func (m *MemoryStore) Debit(addr sdk.Address, amount Lamports) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wallets[addr] < amount {
		return ErrInsufficientFunds
	}
	m.wallets[addr] -= amount
	return nil
}
