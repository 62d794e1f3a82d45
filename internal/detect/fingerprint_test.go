package detect_test

import (
	"testing"

	"incentive-monitor/internal/detect"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := detect.Fingerprint("credit rate raised to 30%")
	b := detect.Fingerprint("credit rate raised to 30%")

	if a != b {
		t.Fatalf("same content produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprint_DiffersOnContent(t *testing.T) {
	a := detect.Fingerprint("deadline: March 31")
	b := detect.Fingerprint("deadline: April 30")

	if a == b {
		t.Fatal("different content produced identical fingerprints")
	}
}

func TestFingerprint_EmptyContent(t *testing.T) {
	// SHA-256 of the empty string is a well-known constant.
	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	if got := detect.Fingerprint(""); got != emptySHA256 {
		t.Fatalf("empty fingerprint = %s, want %s", got, emptySHA256)
	}
}

func TestHasChanged(t *testing.T) {
	same := detect.Fingerprint("stable content")
	other := detect.Fingerprint("drifted content")

	tests := []struct {
		name string
		last *string
		next string
		want bool
	}{
		{name: "nil baseline is never a change", last: nil, next: same, want: false},
		{name: "identical fingerprint", last: &same, next: same, want: false},
		{name: "drifted fingerprint", last: &same, next: other, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect.HasChanged(tt.last, tt.next); got != tt.want {
				t.Fatalf("HasChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
