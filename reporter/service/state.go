package service

// State is a step of a crash upload. Uploads only move forward; any step can
// end in Failed.
type State int

const (
	Idle State = iota
	FileChecked
	SessionOpen
	URLParsed
	Connected
	RequestOpened
	HeadersSet
	Sending
	StreamingBody
	AwaitingResponse
	Done
	Failed
)

var stateNames = [...]string{
	Idle:             "Idle",
	FileChecked:      "FileChecked",
	SessionOpen:      "SessionOpen",
	URLParsed:        "URLParsed",
	Connected:        "Connected",
	RequestOpened:    "RequestOpened",
	HeadersSet:       "HeadersSet",
	Sending:          "Sending",
	StreamingBody:    "StreamingBody",
	AwaitingResponse: "AwaitingResponse",
	Done:             "Done",
	Failed:           "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == Done || s == Failed
}
