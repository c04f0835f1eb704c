package domain

// FetchStatus is the lifecycle stage of the user list component.
type FetchStatus string

const (
	StatusIdle    FetchStatus = "idle"
	StatusLoading FetchStatus = "loading"
	StatusSuccess FetchStatus = "success"
	StatusError   FetchStatus = "error"
)

// State is a read-only snapshot of the user list component.
// Error is set if and only if Status is StatusError.
type State struct {
	Status       FetchStatus `json:"status"`
	Users        []User      `json:"users"`
	Error        string      `json:"error,omitempty"`
	Generation   uint64      `json:"generation"`
	ActivationID string      `json:"activation_id,omitempty"`
}

// transitions lists every allowed edge of the fetch state machine.
// success/error -> loading is only taken by a scoped refetch.
var transitions = map[FetchStatus][]FetchStatus{
	StatusIdle:    {StatusLoading},
	StatusLoading: {StatusSuccess, StatusError},
	StatusSuccess: {StatusLoading},
	StatusError:   {StatusLoading},
}

func (s FetchStatus) CanTransition(to FetchStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s FetchStatus) Settled() bool {
	return s == StatusSuccess || s == StatusError
}
