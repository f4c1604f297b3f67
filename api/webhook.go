package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/runtime/queue"
)

const signatureHeader = "X-Webhook-Signature"

// handleWebhook receives external trigger firings. The inbound JSON body
// becomes the run's trigger data verbatim. Chains whose trigger config
// carries a "secret" require a valid HMAC-SHA256 signature of the raw body.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/hooks/")
	if strings.TrimSpace(token) == "" || strings.Contains(token, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown webhook"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}

	c, err := s.cfg.Chains.GetByRoutingToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown webhook"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if secret := webhookSecret(c); secret != "" {
		if !verifySignature(body, secret, r.Header.Get(signatureHeader)) {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid webhook signature"))
			return
		}
	}

	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("body must be a JSON object: %w", err))
			return
		}
	}

	runReq, err := s.cfg.Dispatcher.HandleWebhook(r.Context(), token, payload)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	if s.cfg.Queue != nil {
		if _, err := s.cfg.Queue.Enqueue(r.Context(), queue.FromRunRequest(runReq)); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to enqueue run: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "chainId": runReq.ChainID})
		return
	}

	record, err := s.cfg.Runner.Run(r.Context(), runReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func webhookSecret(c chain.Chain) string {
	raw, ok := c.TriggerConfig["secret"]
	if !ok {
		return ""
	}
	secret, _ := raw.(string)
	return strings.TrimSpace(secret)
}

// verifySignature checks a hex HMAC-SHA256 signature over the raw request
// body. An optional "sha256=" prefix is accepted.
func verifySignature(body []byte, secret, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
