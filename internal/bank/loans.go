package bank

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coveline/service-ledger-go/internal/bank/entity"
	"github.com/coveline/service-ledger-go/internal/bank/repo"
	"github.com/coveline/service-ledger-go/pkg/utilities"
)

// ApplyForLoan records a PENDING application and enqueues it in the priority
// index.
func (s *Service) ApplyForLoan(ctx context.Context, sess *Session, amount decimal.Decimal, reason string, priorityScore int) (*entity.LoanApplication, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, validationf("loan amount must be positive")
	}
	l := entity.LoanApplication{
		ID:              utilities.NewID(),
		UserID:          sess.UserID,
		Amount:          amount,
		Status:          entity.LoanPending,
		ApplicationDate: now(),
		Reason:          reason,
		PriorityScore:   priorityScore,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.AddLoanApplication(ctx, l); err != nil {
		return nil, mapStoreErr("add loan application", err)
	}
	s.loans.Enqueue(l)
	s.logger.Infow("loan application filed", "loan", l.ID, "user", sess.Username, "priority", priorityScore)
	return &l, nil
}

// GetNextLoanForApproval returns the pending application that would be served
// next, without removing it, or nil when none are pending. Admin only.
func (s *Service) GetNextLoanForApproval(sess *Session) (*entity.LoanApplication, error) {
	if err := s.requireAdmin(sess); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans.PeekNext()
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// ApproveLoan transitions a pending application to APPROVED and deposits the
// loan amount into a recipient account owned by the applicant. Status flip,
// balance credit, and DEPOSIT record commit atomically; the index entry is
// removed exactly once, only after the commit succeeds.
func (s *Service) ApproveLoan(ctx context.Context, sess *Session, loanID, recipientAccountID string) (*entity.LoanApplication, error) {
	if err := s.requireAdmin(sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans.Get(loanID)
	if !ok {
		return nil, notFoundf("loan %q is not pending or already processed", loanID)
	}
	recipient, err := s.store.GetAccountByID(ctx, recipientAccountID)
	if err != nil {
		return nil, mapStoreErr("get recipient account", err)
	}
	if recipient.UserID != loan.UserID {
		return nil, validationf("recipient account does not belong to the loan applicant")
	}

	ld := repo.LoanDeposit{
		LoanID:             loanID,
		RecipientAccountID: recipientAccountID,
		RecipientBalance:   recipient.Balance.Add(loan.Amount),
		Deposit: entity.Transaction{
			ID:          utilities.NewID(),
			AccountID:   recipientAccountID,
			Amount:      loan.Amount,
			Type:        entity.TxnDeposit,
			Timestamp:   now(),
			Description: fmt.Sprintf("Loan approved: %s", loanID),
		},
	}
	if err := s.store.ApproveLoanDeposit(ctx, ld); err != nil {
		return nil, mapStoreErr("approve loan", err)
	}
	s.loans.RemoveByID(loanID)
	loan.Status = entity.LoanApproved
	s.logger.Infow("loan approved", "loan", loanID, "recipient", recipientAccountID, "amount", loan.Amount)
	return &loan, nil
}

// RejectLoan transitions a pending application to REJECTED and removes it from
// the index exactly once, after the status write succeeds.
func (s *Service) RejectLoan(ctx context.Context, sess *Session, loanID string) (*entity.LoanApplication, error) {
	if err := s.requireAdmin(sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans.Get(loanID)
	if !ok {
		return nil, notFoundf("loan %q is not pending or already processed", loanID)
	}
	if err := s.store.UpdateLoanApplicationStatus(ctx, loanID, entity.LoanRejected); err != nil {
		return nil, mapStoreErr("reject loan", err)
	}
	s.loans.RemoveByID(loanID)
	loan.Status = entity.LoanRejected
	s.logger.Infow("loan rejected", "loan", loanID)
	return &loan, nil
}

// GetPendingLoans returns the current index entries in serving order without
// mutating the index.
func (s *Service) GetPendingLoans(sess *Session) ([]entity.LoanApplication, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans.Snapshot(), nil
}

// GetLoansByUserID returns a user's applications across all statuses, newest
// first.
func (s *Service) GetLoansByUserID(ctx context.Context, sess *Session, userID string) ([]entity.LoanApplication, error) {
	if err := s.requireSession(sess); err != nil {
		return nil, err
	}
	loans, err := s.store.GetLoanApplicationsByUserID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr("get loans", err)
	}
	return loans, nil
}
