package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAnalysisErrorMessage(t *testing.T) {
	err := New(EmptyAnalysis, "no functions discovered", nil)

	msg := err.Error()
	if !strings.Contains(msg, "EMPTY_ANALYSIS") {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "no functions discovered") {
		t.Errorf("expected message text, got %q", msg)
	}
}

func TestAnalysisErrorWrapsCause(t *testing.T) {
	cause := errors.New("open model.cim: no such file")
	err := New(ModelUnavailable, "failed to load estimator artifact", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "no such file") {
		t.Errorf("expected cause text in message, got %q", err.Error())
	}
}

func TestCodeOfWalksWrapChain(t *testing.T) {
	inner := New(ParseFailure, "bad syntax", nil)
	wrapped := fmt.Errorf("processing util.py: %w", inner)

	if got := CodeOf(wrapped); got != ParseFailure {
		t.Errorf("CodeOf = %q, want %q", got, ParseFailure)
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain error) = %q, want %q", got, InternalError)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("run failed: %w", New(EmptyAnalysis, "nothing to rank", nil))

	if !IsCode(err, EmptyAnalysis) {
		t.Error("expected IsCode(EmptyAnalysis) to be true")
	}
	if IsCode(err, ModelUnavailable) {
		t.Error("expected IsCode(ModelUnavailable) to be false")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ParseFailure, "file skipped", nil).WithDetails(map[string]string{"file": "a.py"})

	details, ok := err.Details.(map[string]string)
	if !ok || details["file"] != "a.py" {
		t.Errorf("expected details to round-trip, got %#v", err.Details)
	}
}
