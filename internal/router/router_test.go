package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coveline/service-ledger-go/internal/auth"
	"github.com/coveline/service-ledger-go/internal/bank"
	"github.com/coveline/service-ledger-go/internal/bank/repo"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop().Sugar()
	svc, err := bank.NewService(t.Context(), repo.NewMemoryStore(), auth.PBKDF2Hasher{Iterations: 64}, logger)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("ledger-test", time.Hour)
	require.NoError(t, err)
	h := bank.NewHandler(svc, tokens, logger)
	srv := httptest.NewServer(RegisterRoutes(logger, h))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func registerAndLogin(t *testing.T, srv *httptest.Server, username string, admin bool) string {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPost, "/ledger-api/register", "", map[string]any{
		"username": username, "password": "secret1", "full_name": username, "admin": admin,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/ledger-api/login", "", map[string]any{
		"username": username, "password": "secret1",
	}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/ledger-api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestAuthGate(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/ledger-api/accounts", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/accounts", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "alice", false)

	resp := doJSON(t, srv, http.MethodPost, "/ledger-api/login", "", map[string]any{
		"username": "alice", "password": "wrongpass",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "alice", false)

	resp := doJSON(t, srv, http.MethodPost, "/ledger-api/register", "", map[string]any{
		"username": "alice", "password": "secret1", "full_name": "Alice",
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBankingFlow(t *testing.T) {
	srv := newTestServer(t)
	aliceTok := registerAndLogin(t, srv, "alice", false)
	bobTok := registerAndLogin(t, srv, "bob", true)

	var aliceAcct struct {
		ID string `json:"id"`
	}
	resp := doJSON(t, srv, http.MethodPost, "/ledger-api/accounts", aliceTok, map[string]any{
		"type": "CHECKING", "initial_balance": "100.00",
	}, &aliceAcct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, aliceAcct.ID)

	var bobAcct struct {
		ID string `json:"id"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/ledger-api/accounts", bobTok, map[string]any{
		"type": "SAVINGS", "initial_balance": "0",
	}, &bobAcct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// deposit then transfer
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/ledger-api/accounts/%s/deposit", aliceAcct.ID), aliceTok, map[string]any{"amount": "50.00"}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/ledger-api/transfers", aliceTok, map[string]any{
		"from_account_id": aliceAcct.ID, "to_account_id": bobAcct.ID, "amount": "40.00",
	}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// withdrawing beyond the balance is a 400
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/ledger-api/accounts/%s/withdraw", aliceAcct.ID), aliceTok, map[string]any{"amount": "500.00"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// withdrawing from someone else's account is a 403
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/ledger-api/accounts/%s/withdraw", aliceAcct.ID), bobTok, map[string]any{"amount": "10.00"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var accounts []struct {
		ID      string `json:"id"`
		Balance string `json:"balance"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/accounts", aliceTok, nil, &accounts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, accounts, 1)
	assert.Equal(t, "110", accounts[0].Balance)

	var txns []struct {
		Type   string `json:"type"`
		Amount string `json:"amount"`
	}
	resp = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/ledger-api/accounts/%s/transactions", aliceAcct.ID), aliceTok, nil, &txns)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, txns, 2)
	assert.Equal(t, "TRANSFER_OUT", txns[0].Type)
	assert.Equal(t, "DEPOSIT", txns[1].Type)

	var graph map[string]map[string][]string
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/graph", aliceTok, nil, &graph)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, graph["alice"]["bob"], 1)
	assert.Contains(t, graph["alice"]["bob"][0], "Amount: 40.00")
}

func TestLoanFlow(t *testing.T) {
	srv := newTestServer(t)
	aliceTok := registerAndLogin(t, srv, "alice", false)
	adminTok := registerAndLogin(t, srv, "boss", true)

	var acct struct {
		ID string `json:"id"`
	}
	resp := doJSON(t, srv, http.MethodPost, "/ledger-api/accounts", aliceTok, map[string]any{
		"type": "CHECKING", "initial_balance": "0",
	}, &acct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var loan struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/ledger-api/loans", aliceTok, map[string]any{
		"amount": "500.00", "reason": "home repairs", "priority_score": 3,
	}, &loan)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", loan.Status)

	// non-admin cannot peek the approval queue
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/loans/next", aliceTok, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var next struct {
		ID string `json:"id"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/loans/next", adminTok, nil, &next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, loan.ID, next.ID)

	var approved struct {
		Status string `json:"status"`
	}
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/ledger-api/loans/%s/approve", loan.ID), adminTok, map[string]any{
		"recipient_account_id": acct.ID,
	}, &approved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", approved.Status)

	// queue drained
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/loans/next", adminTok, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var accounts []struct {
		Balance string `json:"balance"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/accounts", aliceTok, nil, &accounts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, accounts, 1)
	assert.Equal(t, "500", accounts[0].Balance)
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t)
	tok := registerAndLogin(t, srv, "alice", false)

	resp := doJSON(t, srv, http.MethodGet, "/ledger-api/accounts", tok, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/ledger-api/logout", tok, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// token still parses, but the session behind it is revoked
	resp = doJSON(t, srv, http.MethodGet, "/ledger-api/accounts", tok, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
