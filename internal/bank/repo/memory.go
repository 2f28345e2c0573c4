package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
)

// MemoryStore is a map-backed Store for development and tests. It honors the
// same atomicity contract as the postgres store: ApplyTransfer and
// ApproveLoanDeposit either apply fully or, when a fault is injected, not at
// all.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]entity.User // by id
	salts    map[string][]byte      // by username
	accounts map[string]entity.Account
	txns     []entity.Transaction
	loans    map[string]entity.LoanApplication

	// FailOn maps a method name to an error returned on the next call to it.
	// Fault-injection hook for tests; leave empty otherwise.
	FailOn map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]entity.User),
		salts:    make(map[string][]byte),
		accounts: make(map[string]entity.Account),
		loans:    make(map[string]entity.LoanApplication),
		FailOn:   make(map[string]error),
	}
}

func (m *MemoryStore) fail(op string) error {
	if err, ok := m.FailOn[op]; ok {
		return err
	}
	return nil
}

func (m *MemoryStore) AddUser(_ context.Context, u entity.User, salt []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %q", ErrDuplicate, u.Username)
		}
	}
	m.users[u.ID] = u
	m.salts[u.Username] = append([]byte(nil), salt...)
	return nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
}

func (m *MemoryStore) GetUserSalt(_ context.Context, username string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	salt, ok := m.salts[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	return append([]byte(nil), salt...), nil
}

func (m *MemoryStore) GetAllUsers(_ context.Context) ([]entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AddAccount(_ context.Context, a entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAccountByID(_ context.Context, id string) (*entity.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %q", ErrNotFound, id)
	}
	return &a, nil
}

func (m *MemoryStore) GetAccountsByUserID(_ context.Context, userID string) ([]entity.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetAllAccounts(_ context.Context) ([]entity.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entity.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateAccountBalance(_ context.Context, id string, balance decimal.Decimal) error {
	if err := m.fail("UpdateAccountBalance"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("%w: account %q", ErrNotFound, id)
	}
	a.Balance = balance
	m.accounts[id] = a
	return nil
}

func (m *MemoryStore) AddTransaction(_ context.Context, t entity.Transaction) error {
	if err := m.fail("AddTransaction"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns = append(m.txns, t)
	return nil
}

func (m *MemoryStore) GetTransactionsByAccountID(_ context.Context, accountID string) ([]entity.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.Transaction
	for i := len(m.txns) - 1; i >= 0; i-- {
		if m.txns[i].AccountID == accountID {
			out = append(out, m.txns[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) GetAllTransactions(_ context.Context) ([]entity.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entity.Transaction, 0, len(m.txns))
	for i := len(m.txns) - 1; i >= 0; i-- {
		out = append(out, m.txns[i])
	}
	return out, nil
}

func (m *MemoryStore) ApplyTransfer(_ context.Context, tr TransferRecord) error {
	if err := m.fail("ApplyTransfer"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.accounts[tr.FromAccountID]
	if !ok {
		return fmt.Errorf("%w: account %q", ErrNotFound, tr.FromAccountID)
	}
	to, ok := m.accounts[tr.ToAccountID]
	if !ok {
		return fmt.Errorf("%w: account %q", ErrNotFound, tr.ToAccountID)
	}
	from.Balance = tr.FromBalance
	to.Balance = tr.ToBalance
	m.accounts[tr.FromAccountID] = from
	m.accounts[tr.ToAccountID] = to
	m.txns = append(m.txns, tr.Outgoing, tr.Incoming)
	return nil
}

func (m *MemoryStore) AddLoanApplication(_ context.Context, l entity.LoanApplication) error {
	if err := m.fail("AddLoanApplication"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l
	return nil
}

func (m *MemoryStore) UpdateLoanApplicationStatus(_ context.Context, id string, status entity.LoanStatus) error {
	if err := m.fail("UpdateLoanApplicationStatus"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return fmt.Errorf("%w: loan %q", ErrNotFound, id)
	}
	l.Status = status
	m.loans[id] = l
	return nil
}

func (m *MemoryStore) GetLoanApplicationsByStatus(_ context.Context, status entity.LoanStatus) ([]entity.LoanApplication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.LoanApplication
	for _, l := range m.loans {
		if l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore < out[j].PriorityScore
		}
		return out[i].ApplicationDate.Before(out[j].ApplicationDate)
	})
	return out, nil
}

func (m *MemoryStore) GetLoanApplicationsByUserID(_ context.Context, userID string) ([]entity.LoanApplication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.LoanApplication
	for _, l := range m.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationDate.After(out[j].ApplicationDate) })
	return out, nil
}

// LoanByID is a convenience lookup not part of the Store contract.
func (m *MemoryStore) LoanByID(id string) (entity.LoanApplication, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	return l, ok
}

func (m *MemoryStore) ApproveLoanDeposit(_ context.Context, ld LoanDeposit) error {
	if err := m.fail("ApproveLoanDeposit"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[ld.LoanID]
	if !ok {
		return fmt.Errorf("%w: loan %q", ErrNotFound, ld.LoanID)
	}
	a, ok := m.accounts[ld.RecipientAccountID]
	if !ok {
		return fmt.Errorf("%w: account %q", ErrNotFound, ld.RecipientAccountID)
	}
	l.Status = entity.LoanApproved
	m.loans[ld.LoanID] = l
	a.Balance = ld.RecipientBalance
	m.accounts[ld.RecipientAccountID] = a
	m.txns = append(m.txns, ld.Deposit)
	return nil
}

var _ Store = (*MemoryStore)(nil)
