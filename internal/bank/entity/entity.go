package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies bank accounts.
type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountChecking || t == AccountSavings
}

// TransactionType tags a ledger record with the operation that produced it.
type TransactionType string

const (
	TxnDeposit     TransactionType = "DEPOSIT"
	TxnWithdrawal  TransactionType = "WITHDRAWAL"
	TxnTransferOut TransactionType = "TRANSFER_OUT"
	TxnTransferIn  TransactionType = "TRANSFER_IN"
)

// LoanStatus is the lifecycle state of a loan application.
// PENDING is initial; APPROVED and REJECTED are terminal.
type LoanStatus string

const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
)

// User represents a row in the `users` table. Identity is immutable once
// created; credentials and the admin flag may change.
type User struct {
	ID           string `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	FullName     string `db:"full_name" json:"full_name"`
	Admin        bool   `db:"is_admin" json:"is_admin"`
}

// Account represents a bank account. Balance is mutated only through ledger
// operations and is never negative after a committed operation.
type Account struct {
	ID      string          `db:"id" json:"id"`
	UserID  string          `db:"user_id" json:"user_id"`
	Type    AccountType     `db:"type" json:"type"`
	Balance decimal.Decimal `db:"balance" json:"balance"`
}

// Transaction is one immutable ledger record. CounterpartyAccountID is set
// only on transfer legs; Amount is always positive regardless of direction.
type Transaction struct {
	ID                    string          `db:"id" json:"id"`
	AccountID             string          `db:"account_id" json:"account_id"`
	CounterpartyAccountID *string         `db:"counterparty_account_id" json:"counterparty_account_id,omitempty"`
	Amount                decimal.Decimal `db:"amount" json:"amount"`
	Type                  TransactionType `db:"type" json:"type"`
	Timestamp             time.Time       `db:"created_at" json:"timestamp"`
	Description           string          `db:"description" json:"description"`
}

// LoanApplication represents a loan request. Lower PriorityScore means the
// application is served earlier.
type LoanApplication struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          LoanStatus      `db:"status" json:"status"`
	ApplicationDate time.Time       `db:"application_date" json:"application_date"`
	Reason          string          `db:"reason" json:"reason"`
	PriorityScore   int             `db:"priority_score" json:"priority_score"`
}
