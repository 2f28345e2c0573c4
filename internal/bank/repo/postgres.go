package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
)

// PostgresStore implements Store on top of sqlx/postgres.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureSchema creates the four ledger tables if they do not exist (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  password_hash TEXT NOT NULL,
  salt BYTEA NOT NULL,
  full_name TEXT NOT NULL,
  is_admin BOOLEAN NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  type TEXT NOT NULL,
  balance NUMERIC(20,2) NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL REFERENCES accounts(id),
  counterparty_account_id TEXT,
  amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
  type TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS loan_applications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
  status TEXT NOT NULL,
  application_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  reason TEXT NOT NULL DEFAULT '',
  priority_score INT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loan_applications(status);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// isUniqueViolation reports whether err is a postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// --- users ---

func (s *PostgresStore) AddUser(ctx context.Context, u entity.User, salt []byte) error {
	const q = `INSERT INTO users (id, username, password_hash, salt, full_name, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Username, u.PasswordHash, salt, u.FullName, u.Admin)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q", ErrDuplicate, u.Username)
	}
	return err
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	const q = `SELECT id, username, password_hash, full_name, is_admin FROM users WHERE username=$1`
	var u entity.User
	if err := s.db.GetContext(ctx, &u, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserSalt(ctx context.Context, username string) ([]byte, error) {
	const q = `SELECT salt FROM users WHERE username=$1`
	var salt []byte
	if err := s.db.GetContext(ctx, &salt, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil, err
	}
	return salt, nil
}

func (s *PostgresStore) GetAllUsers(ctx context.Context) ([]entity.User, error) {
	const q = `SELECT id, username, password_hash, full_name, is_admin FROM users`
	var users []entity.User
	if err := s.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

// --- accounts ---

func (s *PostgresStore) AddAccount(ctx context.Context, a entity.Account) error {
	const q = `INSERT INTO accounts (id, user_id, type, balance) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.UserID, a.Type, a.Balance)
	return err
}

func (s *PostgresStore) GetAccountByID(ctx context.Context, id string) (*entity.Account, error) {
	const q = `SELECT id, user_id, type, balance FROM accounts WHERE id=$1`
	var a entity.Account
	if err := s.db.GetContext(ctx, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %q", ErrNotFound, id)
		}
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAccountsByUserID(ctx context.Context, userID string) ([]entity.Account, error) {
	const q = `SELECT id, user_id, type, balance FROM accounts WHERE user_id=$1 ORDER BY id`
	var accounts []entity.Account
	if err := s.db.SelectContext(ctx, &accounts, q, userID); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *PostgresStore) GetAllAccounts(ctx context.Context) ([]entity.Account, error) {
	const q = `SELECT id, user_id, type, balance FROM accounts ORDER BY id`
	var accounts []entity.Account
	if err := s.db.SelectContext(ctx, &accounts, q); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *PostgresStore) UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	const q = `UPDATE accounts SET balance=$2 WHERE id=$1`
	res, err := s.db.ExecContext(ctx, q, id, balance)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: account %q", ErrNotFound, id)
	}
	return nil
}

// --- transactions ---

const insertTransactionSQL = `INSERT INTO transactions
	(id, account_id, counterparty_account_id, amount, type, created_at, description)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *PostgresStore) AddTransaction(ctx context.Context, t entity.Transaction) error {
	_, err := s.db.ExecContext(ctx, insertTransactionSQL,
		t.ID, t.AccountID, t.CounterpartyAccountID, t.Amount, t.Type, t.Timestamp, t.Description)
	return err
}

func (s *PostgresStore) GetTransactionsByAccountID(ctx context.Context, accountID string) ([]entity.Transaction, error) {
	const q = `SELECT id, account_id, counterparty_account_id, amount, type, created_at, description
		FROM transactions WHERE account_id=$1 ORDER BY created_at DESC, id DESC`
	var txns []entity.Transaction
	if err := s.db.SelectContext(ctx, &txns, q, accountID); err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *PostgresStore) GetAllTransactions(ctx context.Context) ([]entity.Transaction, error) {
	const q = `SELECT id, account_id, counterparty_account_id, amount, type, created_at, description
		FROM transactions ORDER BY created_at DESC, id DESC`
	var txns []entity.Transaction
	if err := s.db.SelectContext(ctx, &txns, q); err != nil {
		return nil, err
	}
	return txns, nil
}

// ApplyTransfer commits both balance updates and both ledger legs in a single
// SQL transaction so a transfer can never be half-applied.
func (s *PostgresStore) ApplyTransfer(ctx context.Context, tr TransferRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upd = `UPDATE accounts SET balance=$2 WHERE id=$1`
	if _, err := tx.ExecContext(ctx, upd, tr.FromAccountID, tr.FromBalance); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upd, tr.ToAccountID, tr.ToBalance); err != nil {
		return err
	}
	for _, t := range []entity.Transaction{tr.Outgoing, tr.Incoming} {
		if _, err := tx.ExecContext(ctx, insertTransactionSQL,
			t.ID, t.AccountID, t.CounterpartyAccountID, t.Amount, t.Type, t.Timestamp, t.Description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- loan applications ---

func (s *PostgresStore) AddLoanApplication(ctx context.Context, l entity.LoanApplication) error {
	const q = `INSERT INTO loan_applications (id, user_id, amount, status, application_date, reason, priority_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, q, l.ID, l.UserID, l.Amount, l.Status, l.ApplicationDate, l.Reason, l.PriorityScore)
	return err
}

func (s *PostgresStore) UpdateLoanApplicationStatus(ctx context.Context, id string, status entity.LoanStatus) error {
	const q = `UPDATE loan_applications SET status=$2 WHERE id=$1`
	res, err := s.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: loan %q", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) GetLoanApplicationsByStatus(ctx context.Context, status entity.LoanStatus) ([]entity.LoanApplication, error) {
	const q = `SELECT id, user_id, amount, status, application_date, reason, priority_score
		FROM loan_applications WHERE status=$1 ORDER BY priority_score ASC, application_date ASC`
	var loans []entity.LoanApplication
	if err := s.db.SelectContext(ctx, &loans, q, status); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *PostgresStore) GetLoanApplicationsByUserID(ctx context.Context, userID string) ([]entity.LoanApplication, error) {
	const q = `SELECT id, user_id, amount, status, application_date, reason, priority_score
		FROM loan_applications WHERE user_id=$1 ORDER BY application_date DESC`
	var loans []entity.LoanApplication
	if err := s.db.SelectContext(ctx, &loans, q, userID); err != nil {
		return nil, err
	}
	return loans, nil
}

// ApproveLoanDeposit commits the loan's terminal APPROVED transition together
// with the recipient credit and its DEPOSIT record.
func (s *PostgresStore) ApproveLoanDeposit(ctx context.Context, ld LoanDeposit) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE loan_applications SET status=$2 WHERE id=$1`, ld.LoanID, entity.LoanApproved); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance=$2 WHERE id=$1`, ld.RecipientAccountID, ld.RecipientBalance); err != nil {
		return err
	}
	t := ld.Deposit
	if _, err := tx.ExecContext(ctx, insertTransactionSQL,
		t.ID, t.AccountID, t.CounterpartyAccountID, t.Amount, t.Type, t.Timestamp, t.Description); err != nil {
		return err
	}
	return tx.Commit()
}

var _ Store = (*PostgresStore)(nil)
