package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/publisher"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

// publishRequest is the body of POST /publish. Exactly one of Eval and
// Data must be set.
type publishRequest struct {
	Channel string          `json:"channel"`
	Eval    *string         `json:"eval,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// publishResponse relays the broker's answer.
type publishResponse struct {
	Channel    string `json:"channel"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// payload converts the request into a message payload.
func (req publishRequest) payload() (pubsub.Payload, error) {
	switch {
	case req.Eval != nil && req.Data != nil:
		return nil, errors.New("eval and data are mutually exclusive")
	case req.Eval != nil:
		return pubsub.Script(*req.Eval), nil
	case req.Data != nil:
		var value any
		if err := json.Unmarshal(req.Data, &value); err != nil {
			return nil, errors.New("data is not valid JSON")
		}
		return pubsub.Data(value), nil
	default:
		return nil, errors.New("one of eval or data is required")
	}
}

// handlePublish sends a message to the broker on behalf of the caller.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Channel == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "channel is required")
		return
	}
	payload, err := req.payload()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	resp, err := s.publisher.PublishTo(r.Context(), req.Channel, payload)
	switch {
	case errors.Is(err, config.ErrConfiguration):
		writeNotConfigured(w, err.Error())
		return
	case errors.Is(err, publisher.ErrUnexpectedStatus):
		writeJSON(w, http.StatusBadGateway, publishResponse{
			Channel:    req.Channel,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		})
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "broker unreachable")
		return
	}

	writeJSON(w, http.StatusOK, publishResponse{
		Channel:    req.Channel,
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
	})
}
