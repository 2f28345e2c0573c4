package bank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coveline/service-ledger-go/internal/auth"
	"github.com/coveline/service-ledger-go/internal/bank/entity"
)

// Handler exposes the banking service surface as JSON endpoints.
type Handler struct {
	svc    *Service
	tokens *auth.TokenIssuer
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, tokens *auth.TokenIssuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

type sessionKey struct{}

// SessionFromContext returns the session attached by the auth middleware.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// WithSession returns a copy of ctx carrying the session. Exposed for the
// router middleware and for handler tests.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// VerifyToken rebuilds a session value from a bearer token string.
func (h *Handler) VerifyToken(tokenString string) (*Session, error) {
	claims, err := h.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return &Session{
		TokenID:  claims.ID,
		UserID:   claims.Subject,
		Username: claims.Username,
		Admin:    claims.Admin,
	}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrAdminOnly) || errors.Is(err, ErrNotAccountOwner):
		status = http.StatusForbidden
	case errors.Is(err, ErrAuthorization):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Warnw("internal error", "err", err)
		h.writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}

// --- auth endpoints ---

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Admin    bool   `json:"admin"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.RegisterUser(r.Context(), req.Username, req.Password, req.FullName, req.Admin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "username": u.Username})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	token, err := h.tokens.Issue(sess.TokenID, sess.UserID, sess.Username, sess.Admin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(SessionFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// --- account endpoints ---

type createAccountRequest struct {
	Type           entity.AccountType `json:"type"`
	InitialBalance decimal.Decimal    `json:"initial_balance"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.CreateAccount(r.Context(), SessionFromContext(r.Context()), req.Type, req.InitialBalance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) ListUserAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.GetUserAccounts(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) ListAllAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.GetAllAccounts(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Deposit(r.Context(), SessionFromContext(r.Context()), r.PathValue("id"), req.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Withdraw(r.Context(), SessionFromContext(r.Context()), r.PathValue("id"), req.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.TransferFunds(r.Context(), SessionFromContext(r.Context()), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.svc.GetAccountTransactions(r.Context(), SessionFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txns)
}

// --- loan endpoints ---

type loanRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
	PriorityScore int             `json:"priority_score"`
}

func (h *Handler) ApplyForLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.svc.ApplyForLoan(r.Context(), SessionFromContext(r.Context()), req.Amount, req.Reason, req.PriorityScore)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) NextLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.GetNextLoanForApproval(SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if l == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, l)
}

type approveLoanRequest struct {
	RecipientAccountID string `json:"recipient_account_id"`
}

func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req approveLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.svc.ApproveLoan(r.Context(), SessionFromContext(r.Context()), r.PathValue("id"), req.RecipientAccountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, l)
}

func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.RejectLoan(r.Context(), SessionFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, l)
}

func (h *Handler) PendingLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.GetPendingLoans(SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) LoansByUser(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.GetLoansByUserID(r.Context(), SessionFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) TransactionGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := h.svc.SummarizedTransactionGraph(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, graph)
}
