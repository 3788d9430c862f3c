package harness

import "errors"

var (
	ErrAPIStartTimeout   = errors.New("API did not start in time")
	ErrAPIRequestTimeout = errors.New("API did not respond in time")
	ErrAPIRequestFailed  = errors.New("API request failed")
	ErrAlreadyCollected  = errors.New("request was already executed")
)
