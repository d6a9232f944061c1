package agent

// EventType names what happened in the loop.
type EventType string

const (
	EventState       EventType = "state"       // loop entered a new state
	EventToken       EventType = "token"       // model produced text
	EventAction      EventType = "action"      // a tool was selected
	EventObservation EventType = "observation" // a tool result or failure was recorded
	EventAnswer      EventType = "answer"      // the final answer was produced
	EventDone        EventType = "done"
	EventFailed      EventType = "failed"
)

// Event is pushed from a running loop to its subscriber.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	State     State     `json:"state,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Token     string    `json:"token,omitempty"`
	Step      *Step     `json:"step,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"` // Diagnose(Err)
}
