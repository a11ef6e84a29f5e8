package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/dataset"
	"github.com/JonMunkholm/vizboard/internal/panel"
)

func TestMapError(t *testing.T) {
	_, loadErr := dataset.Load("data.xlsx", strings.NewReader("not a workbook"), dataset.LoadOptions{})

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"file too large", errors.New("file too large: 200MB exceeds limit"), "FILE001"},
		{"corrupt workbook", loadErr, "FILE002"},
		{"blank header", fmt.Errorf("load x.csv: %w", dataset.ErrNoColumns), "FILE003"},
		{"missing file field", errors.New("no file provided"), "FILE004"},
		{"empty upload", &dataset.LoadError{File: "a.csv", Format: dataset.FormatCSV, Err: dataset.ErrEmptyFile}, "FILE005"},
		{"nothing loaded", ErrNoDataset, "DATA001"},
		{"no rows", fmt.Errorf("render: %w", chart.ErrNoData), "DATA002"},
		{"bad panel index", panel.ErrPanelIndex, "PNL001"},
		{"ineligible column", panel.ErrIneligibleColumn, "PNL002"},
		{"unknown column", dataset.ErrUnknownColumn, "PNL002"},
		{"unknown kind", chart.ErrUnknownKind, "PNL003"},
		{"wrong type", chart.ErrColumnType, "PNL004"},
		{"expired session", ErrSessionNotFound, "SES001"},
		{"busy", ErrTooManyUploads, "UPL001"},
		{"timeout", errors.New("context deadline exceeded"), "UPL002"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"malformed request", errors.New("invalid request: panel index \"x\""), "REQ001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
		{"case insensitive matching", errors.New("EMPTY FILE"), "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(dataset.ErrEmptyFile)

	expected := "The uploaded file has no data (Code: FILE005). Upload a file with a header row and at least one data row"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", dataset.ErrInvalidFormat, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("load a.csv: %w", dataset.ErrEmptyFile)
		userErr := NewUserError(techErr)

		if userErr.Error() != "The uploaded file has no data" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, dataset.ErrEmptyFile) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}
