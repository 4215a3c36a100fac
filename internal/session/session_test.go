package session

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"veogen-api/internal/auth"
	"veogen-api/internal/fetch"
	"veogen-api/internal/generation"
	"veogen-api/internal/storage"
	"veogen-api/internal/veo"
)

// mockRunner is a testify mock for the poller dependency.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req *generation.Request) (*veo.Descriptor, error) {
	args := m.Called(ctx, req)
	if d := args.Get(0); d != nil {
		return d.(*veo.Descriptor), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubDownloader always serves the same bytes.
type stubDownloader struct{}

func (stubDownloader) Download(ctx context.Context, uri string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("video data")), nil
}

// realFetcher builds a fetch.Fetcher over a throwaway local store so the
// session tests exercise real materialization and release.
func realFetcher(t *testing.T) *fetch.Fetcher {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return fetch.NewFetcher(stubDownloader{}, store, nil)
}

func newTestSession(t *testing.T, runner Runner) *Session {
	t.Helper()
	return New(runner, realFetcher(t), auth.NewSelectable("test-key"), nil)
}

func descriptor720() *veo.Descriptor {
	return &veo.Descriptor{URI: "files/video-1", AspectRatio: generation.AspectWide}
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).Return(descriptor720(), nil)

	s := newTestSession(t, runner)
	require.Equal(t, PhaseIdle, s.Phase())

	err := s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, PhaseSuccess, snap.Phase)
	assert.Empty(t, snap.ErrorMessage)
	assert.NotEmpty(t, snap.VideoURL)
	require.NotNil(t, snap.Descriptor)
	assert.Equal(t, "files/video-1", snap.Descriptor.URI)
	assert.True(t, snap.CanExtend)
}

func TestSubmit_ValidationErrorStaysInline(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}

	s := newTestSession(t, runner)
	err := s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{})
	assert.ErrorIs(t, err, generation.ErrPromptRequired)

	// No phase change, no remote calls.
	assert.Equal(t, PhaseIdle, s.Phase())
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSubmit_MissingCredentialBlocks(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}

	s := New(runner, realFetcher(t), auth.NewSelectable(""), nil)
	err := s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"})
	assert.ErrorIs(t, err, ErrCredentialRequired)

	snap := s.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.True(t, snap.CredentialProblem)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSubmit_WhileLoadingReturnsBusy(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(descriptor720(), nil)

	s := newTestSession(t, runner)

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"})
	}()

	// Wait for the first submit to enter LOADING.
	require.Eventually(t, func() bool {
		return s.Phase() == PhaseLoading
	}, time.Second, time.Millisecond)

	err := s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "Another"})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseSuccess, s.Phase())
}

func TestSubmit_RemoteFailureClassified(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).
		Return(nil, &veo.RemoteError{Message: "API key not valid"})

	s := newTestSession(t, runner)
	err := s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"})
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, "API key not valid", snap.ErrorMessage)
	assert.True(t, snap.CredentialProblem)
}

func TestRetry_ReusesLastRequest(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).
		Return(nil, &veo.RemoteError{Message: "transient"}).Once()
	runner.On("Run", ctx, mock.MatchedBy(func(req *generation.Request) bool {
		return req.Prompt == "A cat"
	})).Return(descriptor720(), nil).Once()

	s := newTestSession(t, runner)
	_ = s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"})
	require.Equal(t, PhaseError, s.Phase())

	require.NoError(t, s.Retry(ctx))
	assert.Equal(t, PhaseSuccess, s.Phase())
	runner.AssertExpectations(t)
}

func TestRetry_WithoutPriorRequest(t *testing.T) {
	s := newTestSession(t, &mockRunner{})
	err := s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestRetryTarget(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).
		Return(nil, &veo.RemoteError{Message: "boom"})

	s := newTestSession(t, runner)

	// Fresh session: nothing to re-submit.
	_, _, err := s.RetryTarget()
	assert.ErrorIs(t, err, ErrNothingToRetry)

	_ = s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"})
	require.Equal(t, PhaseError, s.Phase())

	mode, in, err := s.RetryTarget()
	require.NoError(t, err)
	assert.Equal(t, generation.ModeTextToVideo, mode)
	assert.Equal(t, "A cat", in.Prompt)
}

func TestTryAgain(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).
		Return(nil, &veo.RemoteError{Message: "boom"})

	s := newTestSession(t, runner)

	t.Run("outside ERROR is rejected", func(t *testing.T) {
		_, err := s.TryAgain()
		assert.ErrorIs(t, err, ErrNotInError)
	})

	t.Run("restores prefill without resubmitting", func(t *testing.T) {
		_ = s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat", MusicPrompt: "jazz"})
		require.Equal(t, PhaseError, s.Phase())

		prefill, err := s.TryAgain()
		require.NoError(t, err)
		require.NotNil(t, prefill)
		assert.Equal(t, "A cat", prefill.Prompt)
		assert.Equal(t, "jazz", prefill.MusicPrompt)
		assert.Equal(t, PhaseIdle, s.Phase())
		// Only the one failed submit reached the runner.
		runner.AssertNumberOfCalls(t, "Run", 1)
	})
}

func TestExtendFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("extendable tier produces an extend prefill", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, mock.Anything).Return(descriptor720(), nil)

		s := newTestSession(t, runner)
		require.NoError(t, s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{
			Prompt:     "A cat",
			Resolution: generation.Resolution720,
		}))

		prefill, err := s.ExtendFrom()
		require.NoError(t, err)
		assert.Equal(t, "files/video-1", prefill.SourceVideoURI)
		assert.Equal(t, generation.ModelFull, prefill.Model)
		assert.Equal(t, generation.Resolution720, prefill.Resolution)
		assert.Empty(t, prefill.Prompt)
		assert.Nil(t, prefill.Image)
		assert.Nil(t, prefill.StartFrame)
		assert.Empty(t, prefill.ReferenceImages)
		assert.Equal(t, PhaseIdle, s.Phase())
	})

	t.Run("non-extendable tier is rejected", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", ctx, mock.Anything).Return(&veo.Descriptor{
			URI:         "files/video-hd",
			AspectRatio: generation.AspectWide,
		}, nil)

		s := newTestSession(t, runner)
		require.NoError(t, s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{
			Prompt:     "A cat",
			Resolution: generation.Resolution1080,
		}))

		snap := s.Snapshot()
		assert.False(t, snap.CanExtend)
		_, err := s.ExtendFrom()
		assert.ErrorIs(t, err, ErrNotExtendable)
	})

	t.Run("idle session is rejected", func(t *testing.T) {
		s := newTestSession(t, &mockRunner{})
		_, err := s.ExtendFrom()
		assert.ErrorIs(t, err, ErrNotExtendable)
	})
}

func TestSubmit_ReleasesPreviousVideo(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).Return(descriptor720(), nil)

	s := newTestSession(t, runner)
	require.NoError(t, s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "first"}))
	first := s.Video()
	require.NotNil(t, first)

	require.NoError(t, s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "second"}))
	second := s.Video()
	require.NotNil(t, second)

	assert.True(t, first.Released(), "first video must be released when the second is created")
	assert.False(t, second.Released())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	runner := &mockRunner{}
	runner.On("Run", ctx, mock.Anything).Return(descriptor720(), nil)

	s := newTestSession(t, runner)
	require.NoError(t, s.Submit(ctx, generation.ModeTextToVideo, generation.Inputs{Prompt: "A cat"}))
	video := s.Video()
	require.NotNil(t, video)

	require.NoError(t, s.Reset(ctx))

	snap := s.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Descriptor)
	assert.Empty(t, snap.VideoURL)
	assert.Empty(t, snap.ErrorMessage)
	assert.Nil(t, snap.Prefill)
	assert.True(t, video.Released())
	assert.Nil(t, s.Video())
}
