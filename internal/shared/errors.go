package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session and authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("session token expired")
	ErrInvalidSession   = fmt.Errorf("invalid session record")
	ErrNotAuthorized    = fmt.Errorf("not authorized")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and channel errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrChannelClosed      = fmt.Errorf("interaction channel closed")
	ErrStreamEnded        = fmt.Errorf("stream has ended")
	ErrMalformedFrame     = fmt.Errorf("malformed channel frame")
	ErrStreamerNotFound   = fmt.Errorf("streamer not found")
	ErrNotificationGone   = fmt.Errorf("notification not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
