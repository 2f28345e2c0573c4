package router

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coveline/service-ledger-go/internal/bank"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. Intentionally
// simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerAuthMiddleware verifies the Authorization header and attaches the
// reconstructed session to the request context. Requests without a valid
// token are rejected before reaching the handler.
func BearerAuthMiddleware(h *bank.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			sess, err := h.VerifyToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(bank.WithSession(r.Context(), sess)))
		})
	}
}

// RegisterRoutes mounts the ledger API on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, h *bank.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ledger-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public
	mux.HandleFunc("POST /ledger-api/register", h.Register)
	mux.HandleFunc("POST /ledger-api/login", h.Login)

	// authenticated
	authed := http.NewServeMux()
	authed.HandleFunc("POST /ledger-api/logout", h.Logout)
	authed.HandleFunc("POST /ledger-api/accounts", h.CreateAccount)
	authed.HandleFunc("GET /ledger-api/accounts", h.ListUserAccounts)
	authed.HandleFunc("GET /ledger-api/accounts/all", h.ListAllAccounts)
	authed.HandleFunc("POST /ledger-api/accounts/{id}/deposit", h.Deposit)
	authed.HandleFunc("POST /ledger-api/accounts/{id}/withdraw", h.Withdraw)
	authed.HandleFunc("GET /ledger-api/accounts/{id}/transactions", h.ListAccountTransactions)
	authed.HandleFunc("POST /ledger-api/transfers", h.Transfer)
	authed.HandleFunc("POST /ledger-api/loans", h.ApplyForLoan)
	authed.HandleFunc("GET /ledger-api/loans/next", h.NextLoan)
	authed.HandleFunc("GET /ledger-api/loans/pending", h.PendingLoans)
	authed.HandleFunc("GET /ledger-api/loans/user/{id}", h.LoansByUser)
	authed.HandleFunc("POST /ledger-api/loans/{id}/approve", h.ApproveLoan)
	authed.HandleFunc("POST /ledger-api/loans/{id}/reject", h.RejectLoan)
	authed.HandleFunc("GET /ledger-api/graph", h.TransactionGraph)
	mux.Handle("/ledger-api/", BearerAuthMiddleware(h)(authed))

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
