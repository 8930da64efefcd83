package handler

const (
	errInternalServer     = "Internal server error"
	errScheduleNotFound   = "Schedule not found"
	errInvalidTimeWindow  = "Window end must be after window start"
	errInvalidDateFormat  = "Specific dates must be YYYY-MM-DD"
	errScheduleAlreadySet = "Schedule is already in the requested state"
)
