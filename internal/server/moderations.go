package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seemly-ai/seemly/internal/audit"
	"github.com/seemly-ai/seemly/internal/imagefile"
)

type moderationResponse struct {
	RequestID string             `json:"request_id"`
	Outcome   string             `json:"outcome"`
	Reasons   []string           `json:"reasons"`
	Scores    map[string]float32 `json:"scores"`
	Degraded  []string           `json:"degraded,omitempty"`
	Image     imageInfo          `json:"image"`
}

type imageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type moderationStatusResponse struct {
	RequestID string       `json:"request_id"`
	Status    string       `json:"status"`
	Event     *audit.Event `json:"event,omitempty"`
}

func (s *Server) handleModerations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
		return
	}

	project, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or missing API key", "authentication_error")
		return
	}

	image, err := s.readImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")
		return
	}

	info, err := imagefile.Sniff(image, s.cfg.Limits.MaxImageBytes)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, imagefile.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err.Error(), "invalid_image_error")
		return
	}

	requestID := uuid.NewString()
	s.store.Start(requestID, project.ID)

	ctx := r.Context()
	if s.cfg.Limits.RequestTimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Limits.RequestTimeoutMS)*time.Millisecond)
		defer cancel()
	}

	res := s.moderator.Moderate(ctx, image)

	ev := audit.BuildEvent(requestID, project.ID, res)
	s.store.Complete(requestID, ev)
	s.audit.Emit(ctx, ev)
	s.telemetry.RecordModeration(ev.Outcome, project.ID, res.Timings.TotalMs, len(res.Verdict.Reasons), res.Degraded)

	s.logger.Info("moderation completed",
		"request_id", requestID,
		"project_id", project.ID,
		"outcome", ev.Outcome,
		"reasons", len(ev.Reasons),
		"degraded", res.Degraded,
		"total_ms", res.Timings.TotalMs,
	)

	reasons := res.Verdict.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	resp := moderationResponse{
		RequestID: requestID,
		Outcome:   string(res.Verdict.Outcome),
		Reasons:   reasons,
		Scores:    res.Signals.Scores(),
		Degraded:  res.Degraded,
		Image:     imageInfo{Format: info.Format, Width: info.Width, Height: info.Height},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) handleModerationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
		return
	}

	if _, ok := s.authenticate(r); !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or missing API key", "authentication_error")
		return
	}

	requestID := strings.TrimPrefix(r.URL.Path, "/v1/moderations/")
	if requestID == "" || strings.Contains(requestID, "/") {
		writeError(w, http.StatusNotFound, "unknown request id", "not_found_error")
		return
	}

	entry, ok := s.store.Get(requestID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown or expired request id", "not_found_error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(moderationStatusResponse{
		RequestID: requestID,
		Status:    entry.status,
		Event:     entry.event,
	})
}

type moderationRequest struct {
	ImageB64 string `json:"image_b64"`
}

// readImage accepts either a multipart form with an "image" file field
// or a JSON body carrying base64 image bytes. The body is capped at the
// configured limit plus base64 overhead.
func (s *Server) readImage(r *http.Request) ([]byte, error) {
	bodyCap := s.cfg.Limits.MaxImageBytes*2 + 4096

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(bodyCap); err != nil {
			return nil, errors.New("invalid multipart body")
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New("missing image field")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, bodyCap))
		if err != nil {
			return nil, errors.New("read image field")
		}
		return data, nil
	}

	var req moderationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, bodyCap)).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if req.ImageB64 == "" {
		return nil, errors.New("missing image_b64")
	}
	data, err := base64.StdEncoding.DecodeString(req.ImageB64)
	if err != nil {
		return nil, errors.New("image_b64 is not valid base64")
	}
	return data, nil
}
