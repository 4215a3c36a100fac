// Package server provides the HTTP surface for the video generation
// orchestrator. It includes handlers, middleware, routes, and DTOs
// separated from domain types.
package server

// GenerateRequest is the HTTP request body for submitting a generation.
// Media travels as base64; which fields are required depends on the mode
// and is enforced by the request builder.
type GenerateRequest struct {
	// Mode selects the generation mode.
	Mode string `json:"mode" validate:"required,oneof=TEXT_TO_VIDEO IMAGE_TO_VIDEO FRAMES_TO_VIDEO REFERENCES_TO_VIDEO EXTEND_VIDEO"`
	// Prompt is the user prompt text.
	Prompt string `json:"prompt"`
	// MusicPrompt describes the desired audio; folded into the prompt.
	MusicPrompt string `json:"music_prompt"`
	// Model overrides the default model identifier.
	Model string `json:"model" validate:"omitempty,oneof=veo-3.1-generate-preview veo-3.1-fast-generate-preview"`
	// AspectRatio overrides the default aspect ratio.
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16"`
	// Resolution overrides the default resolution tier.
	Resolution string `json:"resolution" validate:"omitempty,oneof=720p 1080p"`
	// ImageBase64 is the input image for IMAGE_TO_VIDEO.
	ImageBase64 string `json:"image_base64" validate:"omitempty,base64"`
	// StartFrameBase64 is the first frame for FRAMES_TO_VIDEO.
	StartFrameBase64 string `json:"start_frame_base64" validate:"omitempty,base64"`
	// EndFrameBase64 is the last frame for FRAMES_TO_VIDEO.
	EndFrameBase64 string `json:"end_frame_base64" validate:"omitempty,base64"`
	// Loop makes a FRAMES_TO_VIDEO clip end on its start frame.
	Loop bool `json:"loop"`
	// ReferenceImagesBase64 are the asset references for REFERENCES_TO_VIDEO.
	ReferenceImagesBase64 []string `json:"reference_images_base64" validate:"omitempty,max=3,dive,base64"`
	// StyleImageBase64 is the style reference for REFERENCES_TO_VIDEO.
	StyleImageBase64 string `json:"style_image_base64" validate:"omitempty,base64"`
	// SourceVideoURI is the prior result handle for EXTEND_VIDEO.
	SourceVideoURI string `json:"source_video_uri"`
}

// CreateSessionResponse is the HTTP response after creating a session.
type CreateSessionResponse struct {
	// ID is the unique identifier for the created session.
	ID string `json:"id"`
	// Phase is the initial session phase.
	Phase string `json:"phase"`
}

// DescriptorResponse summarizes the remote result of a finished generation.
type DescriptorResponse struct {
	// URI is the remote video reference.
	URI string `json:"uri"`
	// AspectRatio is the aspect ratio the video was requested with.
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// PrefillResponse is the serializable form prefill handed back for
// try-again and extend flows. Only scalar inputs round-trip; media is
// re-selected by the user.
type PrefillResponse struct {
	Prompt         string `json:"prompt,omitempty"`
	MusicPrompt    string `json:"music_prompt,omitempty"`
	Model          string `json:"model,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	Loop           bool   `json:"loop,omitempty"`
	SourceVideoURI string `json:"source_video_uri,omitempty"`
}

// SessionResponse is the HTTP response for reading session state.
type SessionResponse struct {
	// ID is the session identifier.
	ID string `json:"id"`
	// Phase is the current phase: IDLE, LOADING, SUCCESS, or ERROR.
	Phase string `json:"phase"`
	// Error is the user-facing failure message, set in the ERROR phase.
	Error string `json:"error,omitempty"`
	// CredentialPrompt indicates the client should prompt for API key
	// reselection.
	CredentialPrompt bool `json:"credential_prompt,omitempty"`
	// CanExtend indicates the last result qualifies for EXTEND_VIDEO.
	CanExtend bool `json:"can_extend"`
	// VideoURL is the locally addressable URL of the materialized video.
	VideoURL string `json:"video_url,omitempty"`
	// Descriptor summarizes the remote result.
	Descriptor *DescriptorResponse `json:"descriptor,omitempty"`
	// Prefill is the pending form prefill, if a try-again or extend
	// transition produced one.
	Prefill *PrefillResponse `json:"prefill,omitempty"`
}

// SelectCredentialRequest is the HTTP request body for selecting an API key.
type SelectCredentialRequest struct {
	// APIKey is the key used for subsequent remote calls.
	APIKey string `json:"api_key" validate:"required"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
