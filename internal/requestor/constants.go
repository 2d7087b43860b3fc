package requestor

import "time"

const (
	defaultBaseURL     = "https://flags.example.com"
	defaultHTTPTimeout = 10 * time.Second

	// allDataPath serves the full flag+segment snapshot in one response.
	allDataPath = "/sdk/latest-all"

	// maxErrorBodyBytes bounds how much of an error response is kept
	// for the error message.
	maxErrorBodyBytes = 512
)
