package generation

import (
	"errors"
	"fmt"
	"strings"

	"veogen-api/internal/media"
)

// ErrInvalidRequest is the root of all request validation errors. Every
// sentinel below wraps it, so callers can classify with errors.Is.
var ErrInvalidRequest = errors.New("generation: invalid request")

// Static validation errors, one per mode-required input.
var (
	ErrUnknownMode         = fmt.Errorf("%w: unknown mode", ErrInvalidRequest)
	ErrPromptRequired      = fmt.Errorf("%w: prompt or music prompt is required", ErrInvalidRequest)
	ErrImageRequired       = fmt.Errorf("%w: input image is required", ErrInvalidRequest)
	ErrStartFrameRequired  = fmt.Errorf("%w: start frame is required", ErrInvalidRequest)
	ErrReferenceRequired   = fmt.Errorf("%w: at least one reference image is required", ErrInvalidRequest)
	ErrTooManyReferences   = fmt.Errorf("%w: at most %d reference images are allowed", ErrInvalidRequest, MaxReferenceImages)
	ErrSourceVideoRequired = fmt.Errorf("%w: a prior generated video is required", ErrInvalidRequest)
)

// Inputs is the bag of optional user inputs a request is built from. It
// doubles as the serializable form prefill handed back to the
// presentation layer for retry / try-again / extend flows.
type Inputs struct {
	Prompt      string
	MusicPrompt string

	Model       string
	AspectRatio string
	Resolution  string

	Image *media.Asset

	StartFrame *media.Asset
	EndFrame   *media.Asset
	Loop       bool

	ReferenceImages []*media.Asset
	StyleImage      *media.Asset

	SourceVideoURI string
}

// AssemblePrompt joins the user prompt and the music prompt into the
// final text sent to the service. Components are trimmed, empty ones
// dropped, and the music prompt is prefixed with "Audio: ".
func AssemblePrompt(prompt, musicPrompt string) string {
	parts := make([]string, 0, 2)
	if p := strings.TrimSpace(prompt); p != "" {
		parts = append(parts, p)
	}
	if m := strings.TrimSpace(musicPrompt); m != "" {
		parts = append(parts, "Audio: "+m)
	}
	return strings.Join(parts, ". ")
}

// Build produces a well-formed Request for the given mode, enforcing the
// per-mode required fields and forcing canonical values where the mode
// demands them. Fields irrelevant to the mode are dropped, never carried.
func Build(mode Mode, in Inputs) (*Request, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}

	req := &Request{
		Mode:        mode,
		Prompt:      AssemblePrompt(in.Prompt, in.MusicPrompt),
		Model:       in.Model,
		AspectRatio: in.AspectRatio,
		Resolution:  in.Resolution,
	}
	if req.Model == "" {
		req.Model = ModelFast
	}
	if req.AspectRatio == "" {
		req.AspectRatio = AspectWide
	}
	if req.Resolution == "" {
		req.Resolution = Resolution720
	}

	switch mode {
	case ModeTextToVideo:
		if req.Prompt == "" {
			return nil, ErrPromptRequired
		}

	case ModeImageToVideo:
		if in.Image == nil {
			return nil, ErrImageRequired
		}
		req.Image = in.Image

	case ModeFramesToVideo:
		if in.StartFrame == nil {
			return nil, ErrStartFrameRequired
		}
		req.StartFrame = in.StartFrame
		req.EndFrame = in.EndFrame
		req.Loop = in.Loop
		// A looping clip ends where it starts.
		if in.Loop {
			req.EndFrame = in.StartFrame
		}

	case ModeReferencesToVideo:
		if len(in.ReferenceImages) == 0 {
			return nil, ErrReferenceRequired
		}
		if len(in.ReferenceImages) > MaxReferenceImages {
			return nil, ErrTooManyReferences
		}
		if req.Prompt == "" {
			return nil, ErrPromptRequired
		}
		req.References = buildReferences(in.ReferenceImages, in.StyleImage)
		// The service only accepts references with the full model at
		// its canonical output format.
		req.Model = ModelFull
		req.AspectRatio = AspectWide
		req.Resolution = Resolution720

	case ModeExtendVideo:
		if in.SourceVideoURI == "" {
			return nil, ErrSourceVideoRequired
		}
		req.SourceVideoURI = in.SourceVideoURI
		req.Model = ModelFull
		req.Resolution = Resolution720
		// Aspect ratio is inherited from the source video.
		req.AspectRatio = ""
	}

	return req, nil
}

// buildReferences produces the ordered reference list: asset references
// in their given order, then the style reference.
func buildReferences(assets []*media.Asset, style *media.Asset) []Reference {
	refs := make([]Reference, 0, len(assets)+1)
	for _, a := range assets {
		refs = append(refs, Reference{Image: a, Role: RoleAsset})
	}
	if style != nil {
		refs = append(refs, Reference{Image: style, Role: RoleStyle})
	}
	return refs
}
