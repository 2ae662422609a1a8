package record

import (
	"errors"
	"fmt"
	"testing"
)

// TestUnresolvedError_Error verifies error message formatting
func TestUnresolvedError_Error(t *testing.T) {
	err := &UnresolvedError{
		RecordID: "LC08_L1TP",
		Reason:   "record has no order id",
	}

	expected := "unresolved dataset for record LC08_L1TP: record has no order id"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

// TestNetworkError_Error verifies error message formatting
func TestNetworkError_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        *NetworkError
		wantFormat string
	}{
		{
			name: "with HTTP status code",
			err: &NetworkError{
				Operation:  "download",
				StatusCode: 503,
				APIMessage: "service unavailable",
			},
			wantFormat: "network error during download (HTTP 503): service unavailable",
		},
		{
			name: "without HTTP status code",
			err: &NetworkError{
				Operation:  "item_status",
				StatusCode: 0,
				APIMessage: "connection timeout",
			},
			wantFormat: "network error during item_status: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantFormat {
				t.Errorf("Error() = %q, want %q", got, tt.wantFormat)
			}
		})
	}
}

// TestChecksumError_Error verifies error message formatting
func TestChecksumError_Error(t *testing.T) {
	err := &ChecksumError{
		Path:      "/out/a.zip",
		Reference: "abc",
		Computed:  "def",
	}

	expected := "checksum mismatch for /out/a.zip: got def, want abc"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

// TestAuthenticationError_Error verifies error message formatting
func TestAuthenticationError_Error(t *testing.T) {
	err := &AuthenticationError{Provider: "earthdata"}

	expected := "no session established for earthdata"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

// TestErrorUnwrapping verifies errors.Is/As work through the taxonomy
func TestErrorUnwrapping(t *testing.T) {
	base := fmt.Errorf("boom")

	wrapped := fmt.Errorf("context: %w", &NetworkError{Operation: "download", Err: base})

	var netErr *NetworkError
	if !errors.As(wrapped, &netErr) {
		t.Fatal("expected errors.As to find NetworkError")
	}

	if !errors.Is(wrapped, base) {
		t.Error("expected errors.Is to find the base error")
	}
}
