package core

import "errors"

var (
	// ErrUnreadableFile is wrapped by every failure of the underlying read,
	// whole-file or chunked, including context cancellation between chunks.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrUnparseableContent is wrapped when the parser or a format
	// processor rejects the content.
	ErrUnparseableContent = errors.New("unparseable content")

	// ErrUnrecognizedFormat marks content that parsed but matched no format.
	// ReadFile does not return it; it is reported in LoadResult.Warning.
	ErrUnrecognizedFormat = errors.New("could not parse file")

	// ErrFileTooLarge is returned before any read when a file exceeds the
	// configured maximum size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)
