// Package session provides the client-visible controller for video
// generation. A Session holds the current phase, the last request and
// result, and exposes the transitions (submit, retry, try-again, extend,
// reset) that the presentation layer invokes. All mutation flows through
// these transitions; at most one generation is in flight per session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"veogen-api/internal/auth"
	"veogen-api/internal/fetch"
	"veogen-api/internal/generation"
	"veogen-api/internal/veo"
)

// Phase is the client-visible state of a session.
type Phase string

const (
	// PhaseIdle means no request is in flight and no result is pending.
	PhaseIdle Phase = "IDLE"
	// PhaseLoading means a generation is in flight.
	PhaseLoading Phase = "LOADING"
	// PhaseSuccess means the last generation produced a materialized video.
	PhaseSuccess Phase = "SUCCESS"
	// PhaseError means the last generation failed.
	PhaseError Phase = "ERROR"
)

// Static errors for session transitions.
var (
	// ErrBusy is returned when a submit is attempted while one is in flight.
	ErrBusy = errors.New("session: a generation is already in flight")
	// ErrNothingToRetry is returned when Retry is called with no prior request.
	ErrNothingToRetry = errors.New("session: no previous request to retry")
	// ErrNotInError is returned when TryAgain is called outside the ERROR phase.
	ErrNotInError = errors.New("session: try again is only available after an error")
	// ErrNotExtendable is returned when the last result cannot seed an extension.
	ErrNotExtendable = errors.New("session: last result cannot be extended")
	// ErrCredentialRequired is returned when no API credential is selected.
	ErrCredentialRequired = errors.New("session: an API credential must be selected")
)

// Runner drives a built request to its terminal descriptor.
type Runner interface {
	Run(ctx context.Context, req *generation.Request) (*veo.Descriptor, error)
}

// Fetcher materializes a descriptor into a local video.
type Fetcher interface {
	Fetch(ctx context.Context, desc *veo.Descriptor) (*fetch.Video, error)
}

// Session is the per-client generation controller.
type Session struct {
	runner  Runner
	fetcher Fetcher
	creds   auth.Provider
	logger  *slog.Logger

	mu                sync.Mutex
	phase             Phase
	lastRequest       *generation.Request
	lastInputs        *generation.Inputs
	descriptor        *veo.Descriptor
	video             *fetch.Video
	errorMessage      string
	credentialProblem bool
	prefill           *generation.Inputs
}

// New creates an idle Session.
func New(runner Runner, fetcher Fetcher, creds auth.Provider, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		runner:  runner,
		fetcher: fetcher,
		creds:   creds,
		logger:  logger,
		phase:   PhaseIdle,
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot is a consistent read of the session for the presentation layer.
type Snapshot struct {
	Phase             Phase
	ErrorMessage      string
	CredentialProblem bool
	CanExtend         bool
	Descriptor        *veo.Descriptor
	VideoURL          string
	Prefill           *generation.Inputs
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:             s.phase,
		ErrorMessage:      s.errorMessage,
		CredentialProblem: s.credentialProblem,
		CanExtend:         s.canExtendLocked(),
		Descriptor:        s.descriptor,
		Prefill:           s.prefill,
	}
	if s.video != nil && !s.video.Released() {
		snap.VideoURL = s.video.URL()
	}
	return snap
}

// Video returns the currently materialized video, or nil.
func (s *Session) Video() *fetch.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}

// Submit builds a request for the given mode and drives it to completion:
// build, submit-and-poll, fetch, in strict sequence. Validation and
// missing-credential errors are returned inline without entering LOADING;
// everything downstream resolves to SUCCESS or ERROR. Submitting while
// LOADING returns ErrBusy.
func (s *Session) Submit(ctx context.Context, mode generation.Mode, in generation.Inputs) error {
	req, err := generation.Build(mode, in)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.phase == PhaseLoading {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.creds.Available() {
		s.credentialProblem = true
		s.mu.Unlock()
		return ErrCredentialRequired
	}
	s.phase = PhaseLoading
	s.lastRequest = req
	s.lastInputs = &in
	s.errorMessage = ""
	s.credentialProblem = false
	s.prefill = nil
	s.mu.Unlock()

	s.logger.Info("generation submitted",
		slog.String("mode", string(mode)),
		slog.String("model", req.Model),
		slog.String("resolution", req.Resolution),
	)

	desc, err := s.runner.Run(ctx, req)
	if err != nil {
		s.fail(err)
		return err
	}

	video, err := s.fetcher.Fetch(ctx, desc)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	previous := s.video
	s.phase = PhaseSuccess
	s.descriptor = desc
	s.video = video
	s.mu.Unlock()

	// Only one materialized video may be live per session.
	if previous != nil {
		if err := previous.Release(ctx); err != nil {
			s.logger.Warn("failed to release previous video",
				slog.String("path", previous.Path()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("generation succeeded",
		slog.String("uri", desc.URI),
		slog.String("video", video.Path()),
	)
	return nil
}

// fail records a terminal failure and classifies it for the user.
func (s *Session) fail(err error) {
	message, credential := Classify(err)

	s.mu.Lock()
	s.phase = PhaseError
	s.errorMessage = message
	s.credentialProblem = credential
	s.mu.Unlock()

	s.logger.Error("generation failed",
		slog.String("error", err.Error()),
		slog.Bool("credential_problem", credential),
	)
}

// RetryTarget returns the mode and inputs a Retry would re-submit, or
// ErrBusy / ErrNothingToRetry when the transition is not available. It
// lets callers reject a retry before committing to run it.
func (s *Session) RetryTarget() (generation.Mode, generation.Inputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseLoading {
		return "", generation.Inputs{}, ErrBusy
	}
	if s.lastRequest == nil || s.lastInputs == nil {
		return "", generation.Inputs{}, ErrNothingToRetry
	}
	return s.lastRequest.Mode, *s.lastInputs, nil
}

// Retry re-submits the last request unchanged.
func (s *Session) Retry(ctx context.Context) error {
	mode, in, err := s.RetryTarget()
	if err != nil {
		return err
	}
	return s.Submit(ctx, mode, in)
}

// TryAgain moves an ERROR session back to IDLE, preserving the last
// inputs as form prefill without resubmitting.
func (s *Session) TryAgain() (*generation.Inputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseError {
		return nil, ErrNotInError
	}

	s.phase = PhaseIdle
	s.errorMessage = ""
	s.prefill = s.lastInputs
	return s.prefill, nil
}

// ExtendFrom moves a SUCCESS session to IDLE with an EXTEND_VIDEO
// prefill: the prior result as the video input, model and resolution
// pinned to the extendable tier, prompt and media fields cleared. Only
// results produced at the extendable tier qualify.
func (s *Session) ExtendFrom() (*generation.Inputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.canExtendLocked() {
		return nil, ErrNotExtendable
	}

	s.prefill = &generation.Inputs{
		Model:          generation.ModelFull,
		AspectRatio:    s.descriptor.AspectRatio,
		Resolution:     generation.Resolution720,
		SourceVideoURI: s.descriptor.URI,
	}
	s.phase = PhaseIdle
	return s.prefill, nil
}

// canExtendLocked reports extendability; callers hold s.mu.
func (s *Session) canExtendLocked() bool {
	return s.phase == PhaseSuccess &&
		s.descriptor != nil &&
		s.lastRequest != nil &&
		s.lastRequest.Extendable()
}

// Reset clears all retained request, result, and error state, releases
// the held video, and returns the session to IDLE.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	video := s.video
	s.phase = PhaseIdle
	s.lastRequest = nil
	s.lastInputs = nil
	s.descriptor = nil
	s.video = nil
	s.errorMessage = ""
	s.credentialProblem = false
	s.prefill = nil
	s.mu.Unlock()

	if video != nil {
		if err := video.Release(ctx); err != nil {
			return err
		}
	}
	return nil
}
