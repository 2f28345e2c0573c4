package bank

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
	"github.com/coveline/service-ledger-go/internal/bank/repo"
	"github.com/coveline/service-ledger-go/pkg/utilities"
)

// Deposit credits amount to the account and appends one DEPOSIT record.
// Ownership is not required: third parties may pay into any existing account.
func (s *Service) Deposit(ctx context.Context, sess *Session, accountID string, amount decimal.Decimal) error {
	if err := s.requireSession(sess); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return validationf("deposit amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return mapStoreErr("get account", err)
	}
	newBalance := account.Balance.Add(amount)
	if err := s.store.UpdateAccountBalance(ctx, accountID, newBalance); err != nil {
		return mapStoreErr("update balance", err)
	}
	txn := entity.Transaction{
		ID:          utilities.NewID(),
		AccountID:   accountID,
		Amount:      amount,
		Type:        entity.TxnDeposit,
		Timestamp:   now(),
		Description: "Deposit",
	}
	if err := s.store.AddTransaction(ctx, txn); err != nil {
		return mapStoreErr("add transaction", err)
	}
	s.logger.Infow("deposit", "account", accountID, "amount", amount)
	return nil
}

// Withdraw debits amount from the session user's account and appends one
// WITHDRAWAL record. The balance may never go negative.
func (s *Service) Withdraw(ctx context.Context, sess *Session, accountID string, amount decimal.Decimal) error {
	if err := s.requireSession(sess); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return validationf("withdrawal amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return mapStoreErr("get account", err)
	}
	if account.UserID != sess.UserID {
		return ErrNotAccountOwner
	}
	if account.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	newBalance := account.Balance.Sub(amount)
	if err := s.store.UpdateAccountBalance(ctx, accountID, newBalance); err != nil {
		return mapStoreErr("update balance", err)
	}
	txn := entity.Transaction{
		ID:          utilities.NewID(),
		AccountID:   accountID,
		Amount:      amount,
		Type:        entity.TxnWithdrawal,
		Timestamp:   now(),
		Description: "Withdrawal",
	}
	if err := s.store.AddTransaction(ctx, txn); err != nil {
		return mapStoreErr("add transaction", err)
	}
	s.logger.Infow("withdrawal", "account", accountID, "amount", amount)
	return nil
}

// TransferFunds moves amount between two accounts all-or-nothing: both
// balance updates and both ledger legs commit in one gateway transaction.
// On success the transfer is folded into the transaction graph.
func (s *Service) TransferFunds(ctx context.Context, sess *Session, fromAccountID, toAccountID string, amount decimal.Decimal) error {
	if err := s.requireSession(sess); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return validationf("transfer amount must be positive")
	}
	if fromAccountID == toAccountID {
		return validationf("cannot transfer to the same account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.store.GetAccountByID(ctx, fromAccountID)
	if err != nil {
		return mapStoreErr("get source account", err)
	}
	to, err := s.store.GetAccountByID(ctx, toAccountID)
	if err != nil {
		return mapStoreErr("get destination account", err)
	}
	if from.UserID != sess.UserID {
		return ErrNotAccountOwner
	}
	if from.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	ts := now()
	outgoing := entity.Transaction{
		ID:                    utilities.NewID(),
		AccountID:             fromAccountID,
		CounterpartyAccountID: &toAccountID,
		Amount:                amount,
		Type:                  entity.TxnTransferOut,
		Timestamp:             ts,
		Description:           fmt.Sprintf("Transfer to %s", toAccountID),
	}
	incoming := entity.Transaction{
		ID:                    utilities.NewID(),
		AccountID:             toAccountID,
		CounterpartyAccountID: &fromAccountID,
		Amount:                amount,
		Type:                  entity.TxnTransferIn,
		Timestamp:             ts,
		Description:           fmt.Sprintf("Transfer from %s", fromAccountID),
	}
	tr := repo.TransferRecord{
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		FromBalance:   from.Balance.Sub(amount),
		ToBalance:     to.Balance.Add(amount),
		Outgoing:      outgoing,
		Incoming:      incoming,
	}
	if err := s.store.ApplyTransfer(ctx, tr); err != nil {
		return mapStoreErr("apply transfer", err)
	}
	s.graph.Add(from.UserID, to.UserID, amount, ts)
	s.logger.Infow("transfer", "from", fromAccountID, "to", toAccountID, "amount", amount)
	return nil
}
