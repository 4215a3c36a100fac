package session

import (
	"errors"
	"fmt"
	"strings"

	"veogen-api/internal/auth"
	"veogen-api/internal/generation"
	"veogen-api/internal/media"
	"veogen-api/internal/operation"
	"veogen-api/internal/veo"
)

// authSubstrings are matched case-insensitively against failure text to
// detect credential problems: invalid or expired keys, denied permissions,
// and keys pointing at entities that do not exist.
var authSubstrings = []string{
	"api key not valid",
	"api_key_invalid",
	"api key expired",
	"permission denied",
	"permission_denied",
	"unauthenticated",
	"unregistered callers",
	"was not found",
	"not_found",
}

// isAuthorizationProblem reports whether a failure message indicates a
// credential problem that should prompt reselection.
func isAuthorizationProblem(message string) bool {
	lower := strings.ToLower(message)
	for _, s := range authSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Classify converts any pipeline error into a single user-facing message
// and reports whether it should additionally prompt for credential
// reselection.
func Classify(err error) (message string, credentialProblem bool) {
	var terr *veo.TransportError
	var rerr *veo.RemoteError

	switch {
	case errors.Is(err, auth.ErrNoCredential) || errors.Is(err, ErrCredentialRequired):
		return "Select an API key to generate videos.", true

	case errors.As(err, &rerr):
		return rerr.Message, isAuthorizationProblem(rerr.Message)

	case errors.As(err, &terr):
		msg := fmt.Sprintf("The video service responded with status %d.", terr.StatusCode)
		if terr.Body != "" {
			msg = fmt.Sprintf("%s %s", msg, terr.Body)
		}
		return msg, isAuthorizationProblem(terr.Body)

	case errors.Is(err, operation.ErrTimeout):
		return "The generation took too long and was abandoned. Please try again.", false

	case errors.Is(err, generation.ErrInvalidRequest):
		return err.Error(), false

	case errors.Is(err, media.ErrEmptyMedia) || errors.Is(err, media.ErrReadFailed):
		return "The selected media could not be read.", false

	default:
		return err.Error(), isAuthorizationProblem(err.Error())
	}
}
