package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/config"
	"github.com/congo-pay/custody/internal/funding"
	"github.com/congo-pay/custody/internal/infra"
	"github.com/congo-pay/custody/internal/logging"
	"github.com/congo-pay/custody/internal/metrics"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/routes"
)

type envelope struct {
	Success   bool            `json:"success"`
	ErrorKind apperr.Kind     `json:"errorKind"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type client struct {
	t   *testing.T
	app *fiber.App
}

func (c client) do(method, path, token string, body any, out any) (int, envelope) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := c.app.Test(req, 5000)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && len(env.Data) > 0 {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

type registered struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
	Wallet struct {
		Address string `json:"address"`
		Code    string `json:"code"`
	} `json:"wallet"`
}

type walletView struct {
	Balance     string `json:"balance"`
	PrevBalance string `json:"prevBalance"`
}

type moneyView struct {
	Wallet   walletView `json:"wallet"`
	Replayed bool       `json:"replayed"`
}

func newTestServer(t *testing.T) client {
	t.Helper()
	cfg := config.Config{
		AppName:            "custody",
		AppEnv:             "test",
		JWTSecret:          "test-secret",
		AccessTokenTTL:     time.Hour,
		IdempotencyTTL:     time.Minute,
		VerifyTimeout:      time.Second,
		RateLimitPerMinute: 100,
	}
	logger := logging.Discard()
	stores, err := infra.OpenStores(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(stores.Close)

	registry := prometheus.NewRegistry()
	srv, err := New(routes.Deps{
		Cfg:      cfg,
		Logger:   logger,
		Stores:   stores,
		Notifier: notification.NewLoggerNotifier(logger),
		Verifier: funding.StaticVerifier{},
		Metrics:  metrics.New(registry),
		Registry: registry,
	})
	require.NoError(t, err)
	return client{t: t, app: srv.App()}
}

func (c client) onboard(phone, name string) (registered, string) {
	c.t.Helper()
	var user registered
	status, env := c.do(http.MethodPost, "/api/v1/identity/register", "", map[string]string{
		"phone": phone, "pin": "1234", "device_id": "device-" + name, "name": name,
	}, &user)
	require.Equal(c.t, http.StatusCreated, status, env.Message)
	require.Equal(c.t, user.Code, user.Wallet.Code)

	var token struct {
		AccessToken string `json:"access_token"`
	}
	status, env = c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"phone": phone, "pin": "1234", "device_id": "device-" + name,
	}, &token)
	require.Equal(c.t, http.StatusOK, status, env.Message)
	require.NotEmpty(c.t, token.AccessToken)
	return user, token.AccessToken
}

func TestFundAndTransferFlow(t *testing.T) {
	c := newTestServer(t)
	ada, adaToken := c.onboard("+2348000000001", "ada")
	bayo, bayoToken := c.onboard("+2348000000002", "bayo")

	var funded moneyView
	status, env := c.do(http.MethodPost, "/api/v1/wallets/"+ada.Wallet.Address+"/fund", adaToken,
		map[string]any{"paymentRef": "PAY-1", "amount": "1500"}, &funded)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, "1500.00", funded.Wallet.Balance)

	transfer := map[string]any{
		"fromAddress":   ada.Wallet.Address,
		"recipientCode": bayo.Code,
		"amount":        "300",
		"ref":           "T-1",
	}
	var sent moneyView
	status, env = c.do(http.MethodPost, "/api/v1/payments/transfer", adaToken, transfer, &sent)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, "1200.00", sent.Wallet.Balance)
	assert.Equal(t, "1500.00", sent.Wallet.PrevBalance)

	var replay moneyView
	status, _ = c.do(http.MethodPost, "/api/v1/payments/transfer", adaToken, transfer, &replay)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, replay.Replayed)
	assert.Equal(t, "1200.00", replay.Wallet.Balance)

	status, env = c.do(http.MethodPost, "/api/v1/payments/transfer", adaToken, map[string]any{
		"fromAddress": ada.Wallet.Address, "recipientCode": bayo.Code, "amount": "5000", "ref": "T-2",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperr.KindConflict, env.ErrorKind)

	status, env = c.do(http.MethodPost, "/api/v1/payments/transfer", bayoToken, map[string]any{
		"fromAddress": ada.Wallet.Address, "recipientCode": bayo.Code, "amount": "10", "ref": "T-3",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperr.KindUnauthorized, env.ErrorKind)

	var summary struct {
		TotalCredit string `json:"totalCredit"`
		TotalDebit  string `json:"totalDebit"`
	}
	status, _ = c.do(http.MethodGet, "/api/v1/wallets/"+bayo.Wallet.Address+"/summary", bayoToken, nil, &summary)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "300.00", summary.TotalCredit)
	assert.Equal(t, "0.00", summary.TotalDebit)

	var entries []map[string]any
	status, _ = c.do(http.MethodGet, "/api/v1/wallets/"+ada.Wallet.Address+"/transactions", adaToken, nil, &entries)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, entries, 2)
}

func TestResourceCustodyFlow(t *testing.T) {
	c := newTestServer(t)
	_, adaToken := c.onboard("+2348000000001", "ada")
	bayo, bayoToken := c.onboard("+2348000000002", "bayo")

	var res struct {
		RUID   string `json:"ruid"`
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	status, env := c.do(http.MethodPost, "/api/v1/resources", adaToken, map[string]string{
		"identityNumber": "VIN-0001", "name": "Red bicycle", "kind": "vehicle",
	}, &res)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, "ACTIVE", res.Status)

	status, env = c.do(http.MethodPatch, "/api/v1/resources/"+res.RUID+"/status", adaToken,
		map[string]string{"status": "RELEASED"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.KindValidation, env.ErrorKind)

	var entry struct {
		UUID         string `json:"uuid"`
		Status       string `json:"status"`
		NewOwnerUUID string `json:"newOwnerUuid"`
	}
	status, env = c.do(http.MethodPost, "/api/v1/resources/"+res.Code+"/transfer", adaToken,
		map[string]string{"newOwner": "+2348000000002", "note": "gift"}, &entry)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "RELEASED", entry.Status)
	assert.Equal(t, bayo.UserID, entry.NewOwnerUUID)

	status, _ = c.do(http.MethodPost, "/api/v1/resources/"+res.Code+"/transfer", adaToken,
		map[string]string{"newOwner": bayo.Code}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var history []map[string]any
	status, _ = c.do(http.MethodGet, "/api/v1/ownership/history", adaToken, nil, &history)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, history, 1)

	var owned []map[string]any
	status, _ = c.do(http.MethodGet, "/api/v1/resources", bayoToken, nil, &owned)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, owned, 1)
}

func TestErrorEnvelopeForFiberErrors(t *testing.T) {
	c := newTestServer(t)

	status, env := c.do(http.MethodGet, "/api/v1/wallets/anything", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, apperr.KindUnauthorized, env.ErrorKind)
	assert.Equal(t, "missing bearer token", env.Message)
}
