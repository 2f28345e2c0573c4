package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound signals that the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate signals a unique-constraint violation (e.g. username taken).
	ErrDuplicate = errors.New("duplicate record")
)

// TransferRecord carries everything needed to apply a funds transfer
// atomically: both post-transfer balances and both ledger legs.
type TransferRecord struct {
	FromAccountID string
	ToAccountID   string
	FromBalance   decimal.Decimal
	ToBalance     decimal.Decimal
	Outgoing      entity.Transaction
	Incoming      entity.Transaction
}

// LoanDeposit carries the terminal transition of an approved loan: status
// flip, credited recipient balance, and the DEPOSIT ledger record.
type LoanDeposit struct {
	LoanID             string
	RecipientAccountID string
	RecipientBalance   decimal.Decimal
	Deposit            entity.Transaction
}

// Store is the durable persistence gateway the banking core depends on.
// Implementations must treat ApplyTransfer and ApproveLoanDeposit as
// all-or-nothing commits.
type Store interface {
	AddUser(ctx context.Context, u entity.User, salt []byte) error
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserSalt(ctx context.Context, username string) ([]byte, error)
	GetAllUsers(ctx context.Context) ([]entity.User, error)

	AddAccount(ctx context.Context, a entity.Account) error
	GetAccountByID(ctx context.Context, id string) (*entity.Account, error)
	GetAccountsByUserID(ctx context.Context, userID string) ([]entity.Account, error)
	GetAllAccounts(ctx context.Context) ([]entity.Account, error)
	UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error

	AddTransaction(ctx context.Context, t entity.Transaction) error
	GetTransactionsByAccountID(ctx context.Context, accountID string) ([]entity.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]entity.Transaction, error)
	ApplyTransfer(ctx context.Context, tr TransferRecord) error

	AddLoanApplication(ctx context.Context, l entity.LoanApplication) error
	UpdateLoanApplicationStatus(ctx context.Context, id string, status entity.LoanStatus) error
	GetLoanApplicationsByStatus(ctx context.Context, status entity.LoanStatus) ([]entity.LoanApplication, error)
	GetLoanApplicationsByUserID(ctx context.Context, userID string) ([]entity.LoanApplication, error)
	ApproveLoanDeposit(ctx context.Context, ld LoanDeposit) error
}
