package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound       = errors.New("resource not found")
	ErrStoryNotFound  = errors.New("story not found")
	ErrBranchNotFound = errors.New("branch not found")

	// Advance pipeline errors
	ErrInvalidChoice       = errors.New("choice does not match any offered choice at the slot")
	ErrGenerationFailed    = errors.New("chapter generation failed")
	ErrPersistenceConflict = errors.New("concurrent writer advanced the chapter slot version")
	ErrSlotBusy            = errors.New("another advance holds the lease for this chapter slot")

	// Continuity extraction. Never surfaced by Advance; the worker degrades to
	// a fallback record instead.
	ErrContinuityExtractionFailed = errors.New("continuity extraction failed")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
