package newcamd

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKindMatchesWrappedError(t *testing.T) {
	base := newErr(KindChecksumMismatch)
	wrapped := fmt.Errorf("outer: %w", base)

	if !IsKind(wrapped, KindChecksumMismatch) {
		t.Fatalf("expected IsKind to see through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, KindInvalidFrame) {
		t.Fatalf("expected IsKind to reject the wrong kind")
	}
}

func TestIsAuthFailedReturnsReason(t *testing.T) {
	err := authFailed(ReasonBadPassword)
	reason, ok := IsAuthFailed(err)
	if !ok || reason != ReasonBadPassword {
		t.Fatalf("IsAuthFailed = (%v, %v), want (ReasonBadPassword, true)", reason, ok)
	}

	if _, ok := IsAuthFailed(errors.New("unrelated")); ok {
		t.Fatalf("expected IsAuthFailed to reject an unrelated error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying cause")
	err := newErrf(KindInvalidFrame, "wrapping: %w", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
}

func TestErrKindAndAuthReasonStrings(t *testing.T) {
	if KindInvalidFrame.String() != "invalid frame" {
		t.Fatalf("unexpected ErrKind string: %q", KindInvalidFrame.String())
	}
	if ReasonBanned.String() != "banned" {
		t.Fatalf("unexpected AuthReason string: %q", ReasonBanned.String())
	}
}
