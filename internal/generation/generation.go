// Package generation provides the request model for video generation.
// It defines the generation modes, the canonical model/format constants,
// and the GenerationRequest aggregate produced by Build, which is the
// sole constructor enforcing the per-mode field invariants.
package generation

import (
	"veogen-api/internal/media"
)

// Mode selects which inputs a generation request carries.
type Mode string

// Supported generation modes.
const (
	// ModeTextToVideo generates from a text prompt alone.
	ModeTextToVideo Mode = "TEXT_TO_VIDEO"
	// ModeImageToVideo animates a single input image.
	ModeImageToVideo Mode = "IMAGE_TO_VIDEO"
	// ModeFramesToVideo interpolates between a start and an end frame.
	ModeFramesToVideo Mode = "FRAMES_TO_VIDEO"
	// ModeReferencesToVideo generates guided by reference and style images.
	ModeReferencesToVideo Mode = "REFERENCES_TO_VIDEO"
	// ModeExtendVideo continues a previously generated video.
	ModeExtendVideo Mode = "EXTEND_VIDEO"
)

// IsValid returns true if the mode is one of the supported modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeTextToVideo, ModeImageToVideo, ModeFramesToVideo,
		ModeReferencesToVideo, ModeExtendVideo:
		return true
	default:
		return false
	}
}

// Canonical model identifiers and output formats.
const (
	// ModelFull is the full-quality model; required for references and extend.
	ModelFull = "veo-3.1-generate-preview"
	// ModelFast is the faster, cheaper model.
	ModelFast = "veo-3.1-fast-generate-preview"

	// Resolution720 is the extendable resolution tier.
	Resolution720 = "720p"
	// Resolution1080 is the high resolution tier; results cannot be extended.
	Resolution1080 = "1080p"

	// AspectWide is the 16:9 landscape aspect ratio.
	AspectWide = "16:9"
	// AspectPortrait is the 9:16 portrait aspect ratio.
	AspectPortrait = "9:16"

	// MaxReferenceImages caps the asset reference images per request.
	MaxReferenceImages = 3
)

// ReferenceRole distinguishes how a reference image guides generation.
type ReferenceRole string

const (
	// RoleAsset marks a subject/content reference.
	RoleAsset ReferenceRole = "asset"
	// RoleStyle marks a style reference.
	RoleStyle ReferenceRole = "style"
)

// Reference is a role-tagged reference image.
type Reference struct {
	Image *media.Asset
	Role  ReferenceRole
}

// Request is an immutable, mode-specific generation request. Exactly the
// fields relevant to Mode are populated; Build is the sole constructor.
type Request struct {
	Mode Mode

	// Prompt is the final assembled text (user prompt plus audio prompt).
	Prompt string

	Model       string
	AspectRatio string // empty for EXTEND_VIDEO; the service inherits it
	Resolution  string

	// IMAGE_TO_VIDEO
	Image *media.Asset

	// FRAMES_TO_VIDEO
	StartFrame *media.Asset
	EndFrame   *media.Asset
	Loop       bool

	// REFERENCES_TO_VIDEO; asset references first, then the style reference.
	References []Reference

	// EXTEND_VIDEO; the remote handle of the video being continued.
	SourceVideoURI string
}

// Extendable returns true if a result produced by this request qualifies
// as input for a later EXTEND_VIDEO request. Only the 720p tier extends.
func (r *Request) Extendable() bool {
	return r.Resolution == Resolution720
}
