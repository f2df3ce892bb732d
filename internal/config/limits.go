package config

import "time"

const (
	// MaxBoardNameLength is the maximum length for board names.
	// Limited to 255 to fit in the store's VARCHAR-style field limit;
	// longer names are truncated, not rejected, on sub-board creation.
	MaxBoardNameLength = 255

	// MaxColumnNameLength is the maximum length for column names.
	// Same as board names for consistency.
	MaxColumnNameLength = 255

	// MaxCardTitleLength is the maximum length for card titles.
	MaxCardTitleLength = 255

	// MaxBatchDocuments is the maximum number of documents a single
	// atomic batch may touch. The reference deployment's store commits
	// batches of 400-500 documents; 450 leaves headroom for bookkeeping
	// writes that ride along with bulk operations.
	MaxBatchDocuments = 450

	// MaxInQueryIDs is the maximum number of ids an "id in [...]" query
	// may carry. Larger lookups must be chunked (30 in the reference
	// deployment).
	MaxInQueryIDs = 30

	// SavedDisplayWindow is how long the sync status shows "saved"
	// before auto-reverting to idle.
	SavedDisplayWindow = 2 * time.Second
)
