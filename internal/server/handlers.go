package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"veogen-api/internal/auth"
	"veogen-api/internal/generation"
	"veogen-api/internal/media"
	"veogen-api/internal/session"
)

// SessionFactory creates a fresh Session wired to the generation stack.
type SessionFactory func() *session.Session

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	sessions   *SessionStore
	newSession SessionFactory
	creds      *auth.Selectable
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(factory SessionFactory, creds *auth.Selectable, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		sessions:   NewSessionStore(),
		newSession: factory,
		creds:      creds,
		validator:  validator.New(),
		logger:     logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateSession handles POST /sessions requests.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	h.sessions.Put(id, h.newSession())

	h.logger.Info("session created", slog.String("session_id", id))

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		ID:    id,
		Phase: string(session.PhaseIdle),
	})
}

// GetSession handles GET /sessions/{id} requests.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, sess))
}

// Generate handles POST /sessions/{id}/generate requests. The request is
// validated and built synchronously so input problems report inline;
// the submit-poll-fetch pipeline then runs in a detached goroutine.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	mode := generation.Mode(req.Mode)
	inputs, err := toInputs(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MEDIA")
		return
	}

	// Surface mode-requirement violations before accepting the job.
	if _, err := generation.Build(mode, inputs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}

	if !h.creds.Available() {
		writeError(w, http.StatusPreconditionFailed, "select an API key first", "CREDENTIAL_REQUIRED")
		return
	}

	if sess.Phase() == session.PhaseLoading {
		writeError(w, http.StatusConflict, "a generation is already in flight", "SESSION_BUSY")
		return
	}

	// Detached context so the pipeline survives the request ending.
	go func(ctx context.Context) {
		if err := sess.Submit(ctx, mode, inputs); err != nil {
			h.logger.Error("generation failed",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(r.Context()))

	h.logger.Info("generation accepted",
		slog.String("session_id", id),
		slog.String("mode", req.Mode),
	)

	writeJSON(w, http.StatusAccepted, SessionResponse{
		ID:    id,
		Phase: string(session.PhaseLoading),
	})
}

// Retry handles POST /sessions/{id}/retry requests. The retry target is
// resolved synchronously so a session with nothing to retry, or one
// already in flight, is rejected before the client is told anything
// started.
func (h *Handlers) Retry(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}

	mode, inputs, err := sess.RetryTarget()
	if err != nil {
		if errors.Is(err, session.ErrNothingToRetry) {
			writeError(w, http.StatusConflict, err.Error(), "NOTHING_TO_RETRY")
			return
		}
		writeError(w, http.StatusConflict, "a generation is already in flight", "SESSION_BUSY")
		return
	}

	go func(ctx context.Context) {
		if err := sess.Submit(ctx, mode, inputs); err != nil {
			h.logger.Error("retry failed",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(r.Context()))

	writeJSON(w, http.StatusAccepted, SessionResponse{
		ID:    id,
		Phase: string(session.PhaseLoading),
	})
}

// TryAgain handles POST /sessions/{id}/try-again requests: ERROR back to
// IDLE with the last inputs as form prefill, without resubmitting.
func (h *Handlers) TryAgain(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}

	prefill, err := sess.TryAgain()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error(), "NOT_IN_ERROR")
		return
	}

	resp := sessionResponse(id, sess)
	resp.Prefill = prefillResponse(prefill)
	writeJSON(w, http.StatusOK, resp)
}

// Extend handles POST /sessions/{id}/extend requests: SUCCESS to IDLE
// with an EXTEND_VIDEO prefill seeded from the prior result.
func (h *Handlers) Extend(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}

	prefill, err := sess.ExtendFrom()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error(), "NOT_EXTENDABLE")
		return
	}

	resp := sessionResponse(id, sess)
	resp.Prefill = prefillResponse(prefill)
	writeJSON(w, http.StatusOK, resp)
}

// Video handles GET /sessions/{id}/video requests, streaming the
// materialized video file.
func (h *Handlers) Video(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}

	video := sess.Video()
	if video == nil || video.Released() {
		writeError(w, http.StatusNotFound, "no materialized video", "VIDEO_NOT_FOUND")
		return
	}

	rc, err := video.Open(r.Context())
	if err != nil {
		h.logger.Error("failed to open video",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open video", "VIDEO_OPEN_FAILED")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "video/mp4")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("video stream interrupted",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteSession handles DELETE /sessions/{id} requests: reset, release
// held resources, and drop the session.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, id, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := sess.Reset(r.Context()); err != nil {
		h.logger.Warn("session reset failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}
	_ = h.sessions.Delete(id)

	w.WriteHeader(http.StatusNoContent)
}

// SelectCredential handles PUT /credentials requests.
func (h *Handlers) SelectCredential(w http.ResponseWriter, r *http.Request) {
	var req SelectCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	h.creds.Select(req.APIKey)
	h.logger.Info("API credential selected")

	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the {id} path value to a session, writing the error
// response itself when it cannot.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, string, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session ID is required", "MISSING_SESSION_ID")
		return nil, "", false
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
			return nil, "", false
		}
		writeError(w, http.StatusInternalServerError, "failed to get session", "SESSION_FETCH_FAILED")
		return nil, "", false
	}
	return sess, id, true
}

// toInputs decodes the DTO's base64 media into generation inputs.
func toInputs(req GenerateRequest) (generation.Inputs, error) {
	in := generation.Inputs{
		Prompt:         req.Prompt,
		MusicPrompt:    req.MusicPrompt,
		Model:          req.Model,
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
		Loop:           req.Loop,
		SourceVideoURI: req.SourceVideoURI,
	}

	var err error
	if in.Image, err = decodeAsset("image", req.ImageBase64); err != nil {
		return in, err
	}
	if in.StartFrame, err = decodeAsset("start_frame", req.StartFrameBase64); err != nil {
		return in, err
	}
	if in.EndFrame, err = decodeAsset("end_frame", req.EndFrameBase64); err != nil {
		return in, err
	}
	if in.StyleImage, err = decodeAsset("style_image", req.StyleImageBase64); err != nil {
		return in, err
	}
	for i, ref := range req.ReferenceImagesBase64 {
		asset, err := decodeAsset(fmt.Sprintf("reference_%d", i), ref)
		if err != nil {
			return in, err
		}
		in.ReferenceImages = append(in.ReferenceImages, asset)
	}

	return in, nil
}

// decodeAsset turns a base64 field into a media asset, nil when empty.
func decodeAsset(name, b64 string) (*media.Asset, error) {
	if b64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return media.NewAsset(name, raw), nil
}

// sessionResponse maps a session snapshot to its DTO.
func sessionResponse(id string, sess *session.Session) SessionResponse {
	snap := sess.Snapshot()

	resp := SessionResponse{
		ID:               id,
		Phase:            string(snap.Phase),
		Error:            snap.ErrorMessage,
		CredentialPrompt: snap.CredentialProblem,
		CanExtend:        snap.CanExtend,
		VideoURL:         snap.VideoURL,
		Prefill:          prefillResponse(snap.Prefill),
	}
	if snap.Descriptor != nil {
		resp.Descriptor = &DescriptorResponse{
			URI:         snap.Descriptor.URI,
			AspectRatio: snap.Descriptor.AspectRatio,
		}
	}
	return resp
}

// prefillResponse maps prefill inputs to their DTO, nil for no prefill.
func prefillResponse(in *generation.Inputs) *PrefillResponse {
	if in == nil {
		return nil
	}
	return &PrefillResponse{
		Prompt:         in.Prompt,
		MusicPrompt:    in.MusicPrompt,
		Model:          in.Model,
		AspectRatio:    in.AspectRatio,
		Resolution:     in.Resolution,
		Loop:           in.Loop,
		SourceVideoURI: in.SourceVideoURI,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
