package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageIncludesOpKindAndCause(t *testing.T) {
	err := New(KindPatternGateway, "pattern.Scan", errors.New("matcher exited 1"))
	got := err.Error()
	want := "pattern.Scan: PatternGatewayError: matcher exited 1"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageOmitsCauseWhenNil(t *testing.T) {
	err := New(KindValidation, "registry.Put", nil)
	got := err.Error()
	want := "registry.Put: ValidationError"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrapExposesUnderlyingError(t *testing.T) {
	cause := errors.New("disk full")
	err := New(KindCache, "cache.Put", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestKindOfFindsDirectError(t *testing.T) {
	err := New(KindTimeout, "pattern.invoke", errors.New("deadline exceeded"))
	if got := KindOf(err); got != KindTimeout {
		t.Errorf("KindOf = %q, want %q", got, KindTimeout)
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := New(KindNotAGitRepo, "repository.Open", errors.New("not a repo"))
	wrapped := fmt.Errorf("resolving target: %w", inner)
	if got := KindOf(wrapped); got != KindNotAGitRepo {
		t.Errorf("KindOf = %q, want %q", got, KindNotAGitRepo)
	}
}

func TestKindOfReturnsEmptyForPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf = %q, want empty", got)
	}
}

func TestKindOfReturnsEmptyForNil(t *testing.T) {
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindPatternGateway, true},
		{KindTimeout, true},
		{KindValidation, false},
		{KindCancel, false},
		{KindConfig, false},
		{KindRepository, false},
		{KindNotAGitRepo, false},
		{KindCache, false},
	}
	for _, c := range cases {
		if got := c.kind.Retryable(); got != c.want {
			t.Errorf("%s.Retryable() = %v, want %v", c.kind, got, c.want)
		}
	}
}
