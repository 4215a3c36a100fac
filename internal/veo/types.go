// Package veo provides an HTTP client for the Veo long-running video
// generation API on the Generative Language service.
package veo

import "fmt"

// Operation is the client-side view of a remote long-running operation.
// Done flips false to true exactly once; the client never mutates an
// operation other than by re-querying it.
type Operation struct {
	// Name is the opaque operation handle used to query status.
	Name string
	// Done reports whether the operation reached a terminal state.
	Done bool
	// ErrorMessage is set when the operation terminated in failure.
	ErrorMessage string
	// Videos holds the generated results of a successful operation.
	Videos []GeneratedVideo
	// FilteredReasons lists safety-filter reasons when output was withheld.
	FilteredReasons []string
}

// GeneratedVideo is one generated result inside a terminal operation.
type GeneratedVideo struct {
	// URI is the remote reference used for download and for reuse as an
	// EXTEND_VIDEO input.
	URI string
}

// Descriptor is the terminal successful result of a generation job. The
// client must retain it to download the asset and to enable extension.
type Descriptor struct {
	// URI is the remote video reference.
	URI string
	// AspectRatio is the aspect ratio the video was requested with.
	AspectRatio string
}

// TransportError reports a failed HTTP exchange with the service.
type TransportError struct {
	// StatusCode is the HTTP status of the failed response.
	StatusCode int
	// Body is the response body, captured best-effort for diagnostics.
	Body string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("veo: request failed with status %d: %s", e.StatusCode, e.Body)
}

// RemoteError reports an operation that completed without usable output
// or completed in a failed state.
type RemoteError struct {
	// Message is the failure detail reported by the service.
	Message string
}

func (e *RemoteError) Error() string {
	return "veo: generation failed: " + e.Message
}

// Wire types for the predictLongRunning request.

type mediaPayload struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
	URI                string `json:"uri,omitempty"`
}

type referencePayload struct {
	Image         mediaPayload `json:"image"`
	ReferenceType string       `json:"referenceType"`
}

type instancePayload struct {
	Prompt          string             `json:"prompt,omitempty"`
	Image           *mediaPayload      `json:"image,omitempty"`
	LastFrame       *mediaPayload      `json:"lastFrame,omitempty"`
	Video           *mediaPayload      `json:"video,omitempty"`
	ReferenceImages []referencePayload `json:"referenceImages,omitempty"`
}

type parametersPayload struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type predictRequest struct {
	Instances  []instancePayload `json:"instances"`
	Parameters parametersPayload `json:"parameters"`
}

// Wire types for operation responses.

type operationResponse struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *operationError  `json:"error,omitempty"`
	Response *operationResult `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResult struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples        []generatedSample `json:"generatedSamples"`
	RAIMediaFilteredReasons []string          `json:"raiMediaFilteredReasons,omitempty"`
}

type generatedSample struct {
	Video *videoReference `json:"video,omitempty"`
}

type videoReference struct {
	URI string `json:"uri"`
}

// toOperation maps a wire operation response to the client-side view.
func (r *operationResponse) toOperation() Operation {
	op := Operation{
		Name: r.Name,
		Done: r.Done,
	}
	if r.Error != nil {
		op.ErrorMessage = r.Error.Message
	}
	if r.Response != nil && r.Response.GenerateVideoResponse != nil {
		gvr := r.Response.GenerateVideoResponse
		op.FilteredReasons = gvr.RAIMediaFilteredReasons
		for _, s := range gvr.GeneratedSamples {
			if s.Video != nil {
				op.Videos = append(op.Videos, GeneratedVideo{URI: s.Video.URI})
			}
		}
	}
	return op
}
