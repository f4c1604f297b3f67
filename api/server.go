// Package api exposes the engine over HTTP: chain management, manual
// execution, execution history, account balance and deposits, and the
// public webhook endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/engine"
	"github.com/chainwork/chainwork/execution"
	"github.com/chainwork/chainwork/ledger"
	"github.com/chainwork/chainwork/runtime/queue"
)

const maxBodyBytes = 1 << 20

// Runner is the slice of the engine the API needs for synchronous
// execution.
type Runner interface {
	Run(ctx context.Context, req execution.RunRequest) (execution.Record, error)
}

type Config struct {
	Addr       string
	Chains     chain.Store
	Executions execution.Store
	Ledger     *ledger.Ledger
	Dispatcher *engine.Dispatcher
	Runner     Runner
	// Queue carries webhook-triggered runs to the workers. When nil the
	// webhook endpoint executes synchronously instead.
	Queue queue.Queue
}

type Server struct {
	cfg  Config
	mux  *http.ServeMux
	http *http.Server
	once sync.Once
}

func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.Chains == nil {
		return nil, fmt.Errorf("chain store is required")
	}
	if cfg.Executions == nil {
		return nil, fmt.Errorf("execution store is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	s.http = &http.Server{Addr: cfg.Addr, Handler: s.mux}
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/v1/chains", s.handleChains)
	s.mux.HandleFunc("/v1/chains/", s.handleChainSubresources)
	s.mux.HandleFunc("/v1/executions/", s.handleExecutionByID)
	s.mux.HandleFunc("/v1/account/balance", s.handleBalance)
	s.mux.HandleFunc("/v1/account/deposits", s.handleDeposit)
	s.mux.HandleFunc("/v1/account/transactions", s.handleTransactions)
	s.mux.HandleFunc("/hooks/", s.handleWebhook)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.mux
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}
	errCh := make(chan error, 1)
	go func() {
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	log.Printf("[api] listening on %s", s.cfg.Addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Printf("[api] shutdown error: %v", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var outErr error
	s.once.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		outErr = s.http.Shutdown(shutdownCtx)
	})
	return outErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userID identifies the caller. Authentication proper is out of scope;
// callers are trusted to present their own id.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("X-User-ID header is required"))
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
}
