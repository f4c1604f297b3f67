package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/engine"
	"github.com/chainwork/chainwork/execution"
)

type chainRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	TriggerType   chain.TriggerType `json:"triggerType"`
	TriggerConfig map[string]any    `json:"triggerConfig"`
	Actions       []chain.Action    `json:"actions"`
	IsActive      *bool             `json:"isActive"`
	ExecutionCost float64           `json:"executionCost"`
}

type executeRequest struct {
	TriggerData map[string]any `json:"triggerData"`
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		chains, err := s.cfg.Chains.ListByOwner(r.Context(), owner)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, chains)
	case http.MethodPost:
		var req chainRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c := req.chain(owner)
		c.ID = uuid.NewString()
		if err := chain.Validate(c); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.cfg.Chains.Save(r.Context(), c); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

// chain builds the model from the request, filling in what the caller may
// omit: active defaults to true, and webhook triggers get a routing token
// generated when the config carries none.
func (req chainRequest) chain(owner string) chain.Chain {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cfg := req.TriggerConfig
	if cfg == nil {
		cfg = map[string]any{}
	}
	c := chain.Chain{
		OwnerID:       owner,
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   req.TriggerType,
		TriggerConfig: cfg,
		Actions:       req.Actions,
		IsActive:      active,
		ExecutionCost: req.ExecutionCost,
	}
	if c.TriggerType == chain.TriggerWebhook && c.RoutingToken() == "" {
		c.TriggerConfig["token"] = uuid.NewString()
	}
	return c
}

func (s *Server) handleChainSubresources(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/chains/")
	chainID, sub, _ := strings.Cut(rest, "/")
	if strings.TrimSpace(chainID) == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("chain id is required"))
		return
	}

	c, err := s.cfg.Chains.Get(r.Context(), chainID)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("chain not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// Ownership mismatches read as not-found so chain ids stay unguessable.
	if c.OwnerID != owner {
		writeError(w, http.StatusNotFound, fmt.Errorf("chain not found"))
		return
	}

	switch sub {
	case "":
		s.handleChainByID(w, r, c)
	case "execute":
		s.handleExecute(w, r, c)
	case "executions":
		s.handleExecutionList(w, r, c)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource"))
	}
}

func (s *Server) handleChainByID(w http.ResponseWriter, r *http.Request, c chain.Chain) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var req chainRequest
		if !decodeBody(w, r, &req) {
			return
		}
		updated := req.chain(c.OwnerID)
		updated.ID = c.ID
		updated.CreatedAt = c.CreatedAt
		if err := chain.Validate(updated); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.cfg.Chains.Save(r.Context(), updated); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.cfg.Chains.Delete(r.Context(), c.ID); err != nil {
			if errors.Is(err, chain.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Errorf("chain not found"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// handleExecute fires a manual trigger and runs the chain synchronously,
// returning the terminal execution record.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, c chain.Chain) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req executeRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	if req.TriggerData == nil {
		req.TriggerData = map[string]any{}
	}

	runReq, err := s.cfg.Dispatcher.Invoke(r.Context(), c.ID, req.TriggerData)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	record, err := s.cfg.Runner.Run(r.Context(), runReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleExecutionList(w http.ResponseWriter, r *http.Request, c chain.Chain) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	records, err := s.cfg.Executions.ListByChain(r.Context(), c.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleExecutionByID(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/executions/")
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("execution not found"))
		return
	}
	record, err := s.cfg.Executions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, execution.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("execution not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// Ownership comes from the chain. A record whose chain no longer
	// resolves has no verifiable owner, so it reads as missing.
	c, err := s.cfg.Chains.Get(r.Context(), record.ChainID)
	if err != nil || c.OwnerID != owner {
		writeError(w, http.StatusNotFound, fmt.Errorf("execution not found"))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Errorf("chain not found"))
	case errors.Is(err, engine.ErrChainInactive):
		writeError(w, http.StatusConflict, fmt.Errorf("chain is not active"))
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
