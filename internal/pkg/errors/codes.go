package errors

import "net/http"

var (
	ErrRegionNotFound = New(
		"REGION_NOT_FOUND",
		"Region not found",
		http.StatusNotFound,
	)

	ErrStageNotFound = New(
		"STAGE_NOT_FOUND",
		"Stage not found",
		http.StatusNotFound,
	)

	ErrOverlayNotFound = New(
		"OVERLAY_NOT_FOUND",
		"Overlay not found",
		http.StatusNotFound,
	)

	ErrBasemapNotFound = New(
		"BASEMAP_NOT_FOUND",
		"Basemap not found",
		http.StatusNotFound,
	)

	ErrSessionNotFound = New(
		"SESSION_NOT_FOUND",
		"Viewer session not found or expired",
		http.StatusNotFound,
	)

	ErrRunNotFound = New(
		"RUN_NOT_FOUND",
		"Pipeline run not found",
		http.StatusNotFound,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrLedgerDisabled = New(
		"LEDGER_DISABLED",
		"Run ledger is not configured",
		http.StatusServiceUnavailable,
	)

	ErrQueueDisabled = New(
		"QUEUE_DISABLED",
		"Conversion queue is not configured",
		http.StatusServiceUnavailable,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
