package core

// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. Codes are grouped by category:
//
//	FILE001 - File too large: File exceeds the configured size limit
//	          Patterns: "file too large"
//	FILE002 - Unreadable file: The file could not be read
//	          Patterns: "unreadable file"
//	FILE003 - Unparseable content: The file content could not be decoded
//	          Patterns: "unparseable content"
//	FILE004 - Unrecognized format: Not CSV, JSON rows, GeoJSON or a kepler.gl map
//	          Patterns: "could not parse file"
//	FILE005 - No file: No file was provided
//	          Patterns: "no file provided"
//	FILE006 - Too many files: More files than one request accepts
//	          Patterns: "too many files"
//	FILE007 - Invalid upload: The upload form could not be read
//	          Patterns: "invalid multipart form"
//
//	LOAD001 - System busy: Too many loads in progress
//	          Patterns: "too many concurrent loads"
//	LOAD002 - Request cancelled
//	          Patterns: "context canceled"
//	LOAD003 - Request timeout
//	          Patterns: "context deadline exceeded"
//
//	RATE001 - Rate limited: Too many requests from one client
//	          Patterns: "rate limit exceeded"
//
//	SES001  - Session not found
//	          Patterns: "session not found"
//	SES002  - Storage unavailable
//	          Patterns: "connection refused", "connection reset"
//
//	ERR000  - Fallback when no pattern matches
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
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
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file or filter it before uploading",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unreadable file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that the file is not open elsewhere and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unparseable content",
		msg: UserMessage{
			Message: "The file content could not be decoded",
			Action:  "Make sure the file is valid CSV, JSON or GeoJSON",
			Code:    "FILE003",
		},
	},
	{
		pattern: "could not parse file",
		msg: UserMessage{
			Message: "The file format was not recognized",
			Action:  "Upload CSV, a JSON array of rows, GeoJSON, or a kepler.gl map",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select at least one file to upload",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files in one upload",
			Action:  "Upload the files in smaller groups",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid multipart form",
		msg: UserMessage{
			Message: "The upload could not be read",
			Action:  "Retry the upload as a multipart form with one or more file fields",
			Code:    "FILE007",
		},
	},

	// Load errors
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "LOAD002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "LOAD003",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit exceeded",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a minute before trying again",
			Code:    "RATE001",
		},
	},

	// Session errors
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Session not found",
			Action:  "The session may have expired. Please start a new one",
			Code:    "SES001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Session storage is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "SES002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Session storage connection was interrupted",
			Action:  "Please try again",
			Code:    "SES002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("%w: a.bin", ErrUnreadableFile))
//	// msg.Code == "FILE002"
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
