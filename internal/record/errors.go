package record

import "fmt"

// UnresolvedError marks a record or file whose URL or destination name could
// not be derived. It is a per-pair condition, never a batch failure.
type UnresolvedError struct {
	RecordID string // Record the pair belongs to
	Reason   string // Human-readable explanation of what could not be derived
	Err      error  // Underlying error, if any
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved dataset for record %s: %s", e.RecordID, e.Reason)
}

func (e *UnresolvedError) Unwrap() error {
	return e.Err
}

// NetworkError represents transfer and provider API failures including 5xx
// responses, connection errors and timeouts.
type NetworkError struct {
	Operation  string // The operation that failed (e.g., "download", "item_status")
	StatusCode int    // HTTP status code, if applicable (0 for non-HTTP errors)
	APIMessage string // Error message from the API or network layer
	Err        error  // Underlying error, if any
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error during %s (HTTP %d): %s", e.Operation, e.StatusCode, e.APIMessage)
	}
	return fmt.Sprintf("network error during %s: %s", e.Operation, e.APIMessage)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ChecksumError represents a digest mismatch between a transferred payload
// and its provider-supplied reference digest. It is retried like a transport
// failure.
type ChecksumError struct {
	Path      string // Destination path of the verified file
	Reference string // Provider-supplied reference digest
	Computed  string // Digest computed from the transferred payload
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: got %s, want %s", e.Path, e.Computed, e.Reference)
}

// AuthenticationError represents a missing or invalid provider session. It is
// the only batch-fatal condition: it surfaces before any per-record work.
type AuthenticationError struct {
	Provider string // Provider or hub the credential was required for
	Err      error  // Underlying error, if any
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("no session established for %s", e.Provider)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
