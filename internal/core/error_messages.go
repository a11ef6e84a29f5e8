package core

// error_messages.go maps technical errors to messages a user can act on.
//
// Codes are grouped by category:
//
//	FILE001 - File too large            ("file too large")
//	FILE002 - Unreadable file           ("invalid file format")
//	FILE003 - No column headers         ("no columns found")
//	FILE004 - No file selected          ("no file provided")
//	FILE005 - Empty file                ("empty file")
//
//	DATA001 - No dataset loaded         ("no dataset loaded")
//	DATA002 - Nothing to plot           ("no rows to plot")
//
//	PNL001 - Unknown panel              ("panel index out of range")
//	PNL002 - Column not allowed         ("column not eligible", "unknown column")
//	PNL003 - Unknown chart kind         ("unknown chart kind")
//	PNL004 - Wrong column type          ("wrong type for this chart")
//
//	SES001 - Session expired            ("session not found")
//
//	UPL001 - System busy                ("too many concurrent uploads")
//	UPL002 - Upload timed out           ("context deadline exceeded", "context canceled")
//
//	RATE001 - Rate limited              ("rate limit")
//	REQ001 - Malformed request          ("invalid request")
//
//	ERR000 - Anything else. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains. The first
// match wins, so specific patterns go before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused rows or columns and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid file format",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Upload a comma-separated .csv file or an .xlsx workbook",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no columns found",
		msg: UserMessage{
			Message: "The file has no column headers",
			Action:  "Make sure the first row contains column names",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data",
			Action:  "Upload a file with a header row and at least one data row",
			Code:    "FILE005",
		},
	},

	// Dataset state
	{
		pattern: "no dataset loaded",
		msg: UserMessage{
			Message: "No dataset is loaded",
			Action:  "Upload a CSV or Excel file first",
			Code:    "DATA001",
		},
	},
	{
		pattern: "no rows to plot",
		msg: UserMessage{
			Message: "The selected columns have no complete rows",
			Action:  "Pick columns that have values in the same rows",
			Code:    "DATA002",
		},
	},

	// Panel configuration
	{
		pattern: "panel index out of range",
		msg: UserMessage{
			Message: "That chart slot does not exist",
			Action:  "Reload the page",
			Code:    "PNL001",
		},
	},
	{
		pattern: "column not eligible",
		msg: UserMessage{
			Message: "That column cannot be used for this chart",
			Action:  "Choose one of the listed columns",
			Code:    "PNL002",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "That column cannot be used for this chart",
			Action:  "Choose one of the listed columns",
			Code:    "PNL002",
		},
	},
	{
		pattern: "unknown chart kind",
		msg: UserMessage{
			Message: "Unknown chart type",
			Action:  "Choose a chart type from the list",
			Code:    "PNL003",
		},
	},
	{
		pattern: "wrong type for this chart",
		msg: UserMessage{
			Message: "The column type does not fit this chart",
			Action:  "Choose a column of the type shown next to the selector",
			Code:    "PNL004",
		},
	},

	// Sessions
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Upload the file again",
			Code:    "SES001",
		},
	},

	// Upload capacity
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "The server is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},

	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Reload the page and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
