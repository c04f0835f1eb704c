package domain

import "errors"

var (
	ErrAlreadyActivated  = errors.New("user list already activated")
	ErrFetchInFlight     = errors.New("users fetch already in flight")
	ErrInvalidTransition = errors.New("invalid fetch state transition")
	ErrComponentClosed   = errors.New("user list component closed")
	ErrRefetchDisabled   = errors.New("scoped refetch is disabled, reload the page instead")
	ErrMountNotFound     = errors.New("mount element not found in host page")
	ErrMountAmbiguous    = errors.New("more than one mount element in host page")
	ErrAlreadyMounted    = errors.New("application already mounted")
	ErrNotMounted        = errors.New("application not mounted")
	ErrSnapshotNotFound  = errors.New("users snapshot not found")
)

// user-facing messages stored in State.Error
const (
	TransportErrorPrefix  = "API error: "
	UnknownFetchErrorText = "unknown error while fetching data"
)
