package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nextaz-be/internal/config"
	"nextaz-be/internal/middleware"
	"nextaz-be/internal/notify"
	"nextaz-be/internal/order"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		AppPort:            "0",
		DBHost:             "localhost",
		CORSOrigins:        "http://localhost:4321",
		SGRDeposit:         "0.50",
		PackageBottleCount: 4,
		Currency:           "RON",
		SanityProjectID:    "test",
		SanityDataset:      "production",
		JWTSecret:          "secret",
		AdminUsername:      "admin",
		EmailQueueSize:     10,
		EmailMaxAttempts:   1,
		ShutdownTimeout:    time.Second,
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a, err := newApp(testConfig(), db)
	require.NoError(t, err)
	return a
}

func TestRouter(t *testing.T) {
	a := newTestApp(t)

	t.Run("health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "OK")
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("ipn status reports mock mode", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payment/ipn", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"IPN endpoint active","netopiaConfigured":false}`, rr.Body.String())
	})

	t.Run("empty cart preview", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/cart/validate", strings.NewReader(`{"items":[]}`))
		a.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("admin routes require a token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/orders/NXT-1", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/payment/initiate", nil)
		req.Header.Set("Origin", "http://localhost:4321")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		a.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "http://localhost:4321", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "nextaz_http_requests_total")
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestNewAppRejectsMalformedPublicKey(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.NetopiaPublicKey = "not-a-key"

	_, err = newApp(cfg, db)
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	t.Run("server exits cleanly", func(t *testing.T) {
		orig := startServerFunc
		defer func() { startServerFunc = orig }()
		startServerFunc = func(*http.Server) error { return http.ErrServerClosed }

		a := newTestApp(t)
		assert.NoError(t, a.serve(context.Background(), ":0", time.Second))
	})

	t.Run("listen failure is returned", func(t *testing.T) {
		orig := startServerFunc
		defer func() { startServerFunc = orig }()
		startServerFunc = func(*http.Server) error { return errors.New("address in use") }

		a := newTestApp(t)
		err := a.serve(context.Background(), ":0", time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address in use")
	})

	t.Run("context cancellation shuts down", func(t *testing.T) {
		orig := startServerFunc
		defer func() { startServerFunc = orig }()

		started := make(chan struct{})
		startServerFunc = func(srv *http.Server) error {
			close(started)
			return srv.ListenAndServe()
		}

		ctx, cancel := context.WithCancel(context.Background())
		a := newTestApp(t)

		done := make(chan error, 1)
		go func() { done <- a.serve(ctx, "127.0.0.1:0", time.Second) }()

		<-started
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("serve did not return after cancellation")
		}
	})
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(*config.Config) *sql.DB {
		db, _, _ := sqlmock.New()
		return db
	}

	origStart := startServerFunc
	defer func() { startServerFunc = origStart }()
	startServerFunc = func(*http.Server) error { return nil }

	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "nextaz")

	assert.NoError(t, run())
}

type staticOrders struct{}

func (staticOrders) GetByNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	return &order.Order{
		OrderNumber: orderNumber,
		Customer:    order.Customer{Email: "ana@example.com", Name: "Ana Pop"},
		Currency:    "RON",
	}, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return "id", nil
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Subject)
	}
	return out
}

func TestServeDeliversEmailsFromInFlightRequests(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := notify.NewDispatcher(staticOrders{}, sender, nil, notify.DispatcherConfig{
		From:       "Nextaz <comenzi@nextaz.ro>",
		AdminEmail: "contact@nextaz.ro",
	})

	inFlight := make(chan struct{})
	release := make(chan struct{})
	enqueued := make(chan bool, 1)

	// stands in for the IPN handler committing a paid transition during shutdown
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payment/ipn", func(w http.ResponseWriter, r *http.Request) {
		close(inFlight)
		<-release
		enqueued <- dispatcher.Enqueue("2026-000099")
		w.WriteHeader(http.StatusOK)
	})

	a := &app{handler: mux, dispatcher: dispatcher, limiter: middleware.NewRateLimiter("")}

	orig := startServerFunc
	defer func() { startServerFunc = orig }()

	addr := make(chan string, 1)
	startServerFunc = func(srv *http.Server) error {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		addr <- ln.Addr().String()
		return srv.Serve(ln)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, "127.0.0.1:0", 5*time.Second) }()

	go func() {
		resp, err := http.Post("http://"+<-addr+"/api/payment/ipn", "application/json", strings.NewReader("{}"))
		if err == nil {
			resp.Body.Close()
		}
	}()

	<-inFlight
	cancel()
	// give a dispatcher tied to the request context time to exit
	time.Sleep(100 * time.Millisecond)
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}

	assert.True(t, <-enqueued)
	assert.ElementsMatch(t, []string{
		"Confirmare comanda #2026-000099 - Nextaz",
		"[Comanda noua] #2026-000099 - Ana Pop - 0,00 RON",
	}, sender.subjects())
	assert.False(t, dispatcher.Enqueue("2026-000100"))
}
