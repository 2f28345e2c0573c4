// Package bank implements the business-logic core of the ledger service:
// account and ledger operations, loan prioritization, and the derived
// transaction graph, all gated by explicit session values.
package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coveline/service-ledger-go/internal/auth"
	"github.com/coveline/service-ledger-go/internal/bank/entity"
	"github.com/coveline/service-ledger-go/internal/bank/repo"
	"github.com/coveline/service-ledger-go/pkg/utilities"
)

const minPasswordLen = 6

// Service composes the persistence gateway, credential verifier, loan
// priority index, and transaction graph. It is the sole entry point for
// callers (HTTP handlers, tests). The mutex serializes every read-then-write
// sequence over balances, the loan index, and the graph.
type Service struct {
	store  repo.Store
	hasher auth.PasswordHasher
	logger *zap.SugaredLogger

	mu      sync.Mutex
	loans   *loanIndex
	graph   *transactionGraph
	revoked map[string]struct{}
}

// NewService builds a Service and rebuilds the in-memory loan index and
// transaction graph from persisted state. Construction fails if either
// rebuild fails; the service must not run against an un-provisioned store.
func NewService(ctx context.Context, store repo.Store, hasher auth.PasswordHasher, logger *zap.SugaredLogger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{
		store:   store,
		hasher:  hasher,
		logger:  logger,
		loans:   newLoanIndex(),
		graph:   newTransactionGraph(),
		revoked: make(map[string]struct{}),
	}
	if err := s.rebuildLoanIndex(ctx); err != nil {
		return nil, fmt.Errorf("rebuild loan index: %w", err)
	}
	if err := s.rebuildGraph(ctx); err != nil {
		return nil, fmt.Errorf("rebuild transaction graph: %w", err)
	}
	return s, nil
}

func (s *Service) rebuildLoanIndex(ctx context.Context) error {
	pending, err := s.store.GetLoanApplicationsByStatus(ctx, entity.LoanPending)
	if err != nil {
		return err
	}
	for _, l := range pending {
		s.loans.Enqueue(l)
	}
	s.logger.Infow("loan index rebuilt", "pending", s.loans.Len())
	return nil
}

func (s *Service) rebuildGraph(ctx context.Context) error {
	txns, err := s.store.GetAllTransactions(ctx)
	if err != nil {
		return err
	}
	// account id → owner, resolved once up front
	accounts, err := s.store.GetAllAccounts(ctx)
	if err != nil {
		return err
	}
	owners := make(map[string]string, len(accounts))
	for _, a := range accounts {
		owners[a.ID] = a.UserID
	}
	edges := 0
	for _, t := range txns {
		if t.Type != entity.TxnTransferOut || t.CounterpartyAccountID == nil {
			continue
		}
		sender, okS := owners[t.AccountID]
		receiver, okR := owners[*t.CounterpartyAccountID]
		if !okS || !okR {
			continue
		}
		s.graph.Add(sender, receiver, t.Amount, t.Timestamp)
		edges++
	}
	s.logger.Infow("transaction graph rebuilt", "transfers", edges)
	return nil
}

// mapStoreErr classifies a gateway failure into the service error taxonomy.
func mapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repo.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return persistencef(op, err)
	}
}

// --- user management ---

// RegisterUser creates a new user. It does not establish a session.
func (s *Service) RegisterUser(ctx context.Context, username, password, fullName string, isAdmin bool) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("username is required")
	}
	if len(password) < minPasswordLen {
		return nil, validationf("password must be at least %d characters long", minPasswordLen)
	}
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	u := entity.User{
		ID:           utilities.NewID(),
		Username:     username,
		PasswordHash: s.hasher.Hash(password, salt),
		FullName:     fullName,
		Admin:        isAdmin,
	}
	if err := s.store.AddUser(ctx, u, salt); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, mapStoreErr("add user", err)
	}
	s.logger.Infow("user registered", "username", username, "admin", isAdmin)
	return &u, nil
}

// Login verifies credentials and returns a fresh session. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, mapStoreErr("get user", err)
	}
	salt, err := s.store.GetUserSalt(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, mapStoreErr("get salt", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash, salt) {
		return nil, ErrInvalidCredentials
	}
	sess := &Session{
		TokenID:  utilities.NewKSUID(),
		UserID:   u.ID,
		Username: u.Username,
		Admin:    u.Admin,
	}
	s.logger.Infow("user logged in", "username", u.Username)
	return sess, nil
}

// Logout revokes the session's token id. Subsequent calls carrying the same
// session fail authorization.
func (s *Service) Logout(sess *Session) {
	if sess == nil || sess.TokenID == "" {
		return
	}
	s.mu.Lock()
	s.revoked[sess.TokenID] = struct{}{}
	s.mu.Unlock()
	s.logger.Infow("user logged out", "username", sess.Username)
}

// --- account management ---

// CreateAccount opens an account for the session's user.
func (s *Service) CreateAccount(ctx context.Context, sess *Session, accountType entity.AccountType, initialBalance decimal.Decimal) (*entity.Account, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	if !accountType.Valid() {
		return nil, validationf("unknown account type %q", accountType)
	}
	if initialBalance.IsNegative() {
		return nil, validationf("initial balance cannot be negative")
	}
	a := entity.Account{
		ID:      utilities.NewID(),
		UserID:  sess.UserID,
		Type:    accountType,
		Balance: initialBalance,
	}
	if err := s.store.AddAccount(ctx, a); err != nil {
		return nil, mapStoreErr("add account", err)
	}
	s.logger.Infow("account created", "account", a.ID, "type", accountType, "user", sess.Username)
	return &a, nil
}

// GetUserAccounts lists the session user's accounts.
func (s *Service) GetUserAccounts(ctx context.Context, sess *Session) ([]entity.Account, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	accounts, err := s.store.GetAccountsByUserID(ctx, sess.UserID)
	if err != nil {
		return nil, mapStoreErr("get accounts", err)
	}
	return accounts, nil
}

// GetAllAccounts lists every account, e.g. for picking a transfer destination.
func (s *Service) GetAllAccounts(ctx context.Context, sess *Session) ([]entity.Account, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	accounts, err := s.store.GetAllAccounts(ctx)
	if err != nil {
		return nil, mapStoreErr("get all accounts", err)
	}
	return accounts, nil
}

// GetAccountTransactions returns the account's ledger records, newest first.
func (s *Service) GetAccountTransactions(ctx context.Context, sess *Session, accountID string) ([]entity.Transaction, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	txns, err := s.store.GetTransactionsByAccountID(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr("get transactions", err)
	}
	return txns, nil
}

// --- transaction graph ---

// SummarizedTransactionGraph renders the transfer-flow graph with usernames
// and human-readable transfer strings. Read-only.
func (s *Service) SummarizedTransactionGraph(ctx context.Context, sess *Session) (map[string]map[string][]string, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	users, err := s.store.GetAllUsers(ctx)
	if err != nil {
		return nil, mapStoreErr("get users", err)
	}
	usernames := make(map[string]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Summarize(usernames), nil
}

func now() time.Time { return time.Now().UTC() }
