package constants

const (
	MsgFlightNotFound    = "Flight record not found"
	MsgInvalidBody       = "Invalid request body"
	MsgInvalidWindow     = "Invalid time window"
	MsgOutsideWindow     = "Range is outside the loaded window"
	MsgMutationRejected  = "Assignment rejected by store, local change rolled back"
	MsgMutationConfirmed = "Assignment saved"
	MsgUnknownResource   = "Resource is not in the active pool"
	MsgCheckinIndexRange = "Check-in index out of range"
	MsgSnapshotNotLoaded = "No view window loaded"
	MsgUnauthorized      = "Unauthorized"
)
