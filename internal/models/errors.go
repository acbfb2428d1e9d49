package models

import "errors"

var (
	// ErrNotAPDF means the source failed the %PDF signature check.
	ErrNotAPDF = errors.New("not a PDF")
	// ErrUnreadable means the source could not be opened or parsed.
	ErrUnreadable = errors.New("unreadable document")
	// ErrNeedsPassword means the source is encrypted and no valid password was supplied.
	ErrNeedsPassword = errors.New("document needs password")
	// ErrCorruptArchive means a persisted record exists but could not be decoded.
	ErrCorruptArchive = errors.New("corrupt document archive")
	// ErrWriteFailed means a record could not be persisted.
	ErrWriteFailed = errors.New("archive write failed")
	// ErrPathNotFound means a path does not lie under the sandbox root.
	ErrPathNotFound = errors.New("path not under sandbox root")
	// ErrOutOfRange means a page index is outside [1, pageCount].
	ErrOutOfRange = errors.New("page out of range")
	// ErrRenderFailed means the rendering engine could not produce a bitmap.
	ErrRenderFailed = errors.New("render failed")
)
