package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorMessage(t *testing.T) {
	err := Wrap(fmt.Errorf("exit status 1"), InjectionFailure, "xdotool click").WithMetadata("x", "10")
	want := "[INJECTION_FAILURE] xdotool click map[x:10] caused by: exit status 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(TemplateNotFound, "best score 0.31 below floor")
	wrapped := fmt.Errorf("locate submit: %w", base)

	if !IsCode(wrapped, TemplateNotFound) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if IsCode(wrapped, TextNotFound) {
		t.Error("IsCode matched the wrong code")
	}
	if CodeOf(wrapped) != TemplateNotFound {
		t.Errorf("CodeOf = %v, want TemplateNotFound", CodeOf(wrapped))
	}
	if CodeOf(stderrors.New("plain")) != Unknown {
		t.Error("plain errors should have Unknown code")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{NotFound, true},
		{TemplateNotFound, true},
		{TextNotFound, true},
		{AmbiguousLocalization, false},
		{CaptureFailure, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := IsNotFound(New(tt.code, "x")); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := New(OCRUnavailable, "model not loaded").WithMetadata("engine", "easyocr")
	st := orig.GRPCStatus()
	if st.Code() != codes.Unavailable {
		t.Fatalf("grpc code = %v, want Unavailable", st.Code())
	}

	got := FromGRPCError(st.Err())
	if got.Code != OCRUnavailable {
		t.Errorf("code = %v, want OCRUnavailable", got.Code)
	}
	if got.Message != "model not loaded" {
		t.Errorf("message = %q", got.Message)
	}
	if got.Metadata["engine"] != "easyocr" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	tests := []struct {
		grpc codes.Code
		want Code
	}{
		{codes.NotFound, NotFound},
		{codes.Unavailable, OCRUnavailable},
		{codes.DeadlineExceeded, Timeout},
		{codes.Canceled, Cancelled},
		{codes.PermissionDenied, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.grpc.String(), func(t *testing.T) {
			got := FromGRPCError(status.Error(tt.grpc, "boom"))
			if got.Code != tt.want {
				t.Errorf("FromGRPCError(%v) = %v, want %v", tt.grpc, got.Code, tt.want)
			}
		})
	}

	if FromGRPCError(stderrors.New("not a status")).Code != Unknown {
		t.Error("non-status errors should map to Unknown")
	}
}

func TestParseCode(t *testing.T) {
	for c := range codeNames {
		if ParseCode(c.String()) != c {
			t.Errorf("ParseCode(%q) did not round trip", c.String())
		}
	}
	if ParseCode("NOPE") != Unknown {
		t.Error("unknown names should parse to Unknown")
	}
}
