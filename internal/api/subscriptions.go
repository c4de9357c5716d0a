package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/privatepub/internal/pubsub"
)

// verifyRequest is the body of POST /subscriptions/verify.
type verifyRequest struct {
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// verifyResponse reports the outcome of a ticket check.
type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Expiry string `json:"expiry"`
	Error  string `json:"error,omitempty"`
}

// Verification results reported to the ticket recorders.
const (
	verifyValid   = "valid"
	verifyInvalid = "invalid"
	verifyExpired = "expired"
)

// handleSignSubscription signs a subscription ticket.
//
// The body is a JSON object with at least "channel". "server" and
// "timestamp" override the defaults; every other key is carried through to
// the ticket unchanged. A timestamp may backdate a ticket but never
// postdate it, or the ticket would outlive signature_expiration.
func (s *Server) handleSignSubscription(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// The ticket type already knows how to split fixed fields from extras.
	raw, err := json.Marshal(body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	var req pubsub.Subscription
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if req.Timestamp > s.signer.Now().UnixMilli() {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "timestamp must not be in the future")
		return
	}

	sub, err := s.signer.Sign(pubsub.SubscriptionOptions{
		Channel:   req.Channel,
		Server:    req.Server,
		Timestamp: req.Timestamp,
		Extra:     req.Extra,
	})
	switch {
	case errors.Is(err, pubsub.ErrMissingChannel):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "channel is required")
		return
	case errors.Is(err, pubsub.ErrMissingSecret):
		writeNotConfigured(w, "secret_token is not configured")
		return
	case err != nil:
		s.logger.Error("signing subscription failed", "channel", req.Channel, "error", err)
		writeInternalError(w, "failed to sign subscription")
		return
	}

	for _, rec := range s.tickets {
		rec.RecordTicket()
	}
	if s.audit != nil {
		s.audit.TicketIssued(r.Context(), sub)
	}

	writeJSON(w, http.StatusOK, sub)
}

// handleVerifySubscription checks a ticket presented by a browser client.
// A rejected ticket is still a 200: the verdict is in the body.
func (s *Server) handleVerifySubscription(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Channel == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "channel is required")
		return
	}

	err := s.signer.Verify(req.Channel, req.Timestamp, req.Signature)
	if errors.Is(err, pubsub.ErrMissingSecret) {
		writeNotConfigured(w, "secret_token is not configured")
		return
	}

	expiry := s.signer.IsExpired(req.Timestamp)
	resp := verifyResponse{Valid: err == nil, Expiry: expiry.String()}
	result := verifyValid
	if err != nil {
		resp.Error = err.Error()
		result = verifyInvalid
		if errors.Is(err, pubsub.ErrSignatureExpired) {
			result = verifyExpired
		}
	}

	for _, rec := range s.tickets {
		rec.RecordVerification(result)
	}
	if s.audit != nil {
		s.audit.TicketVerified(r.Context(), req.Channel, expiry, err)
	}

	writeJSON(w, http.StatusOK, resp)
}
