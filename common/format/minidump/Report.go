package minidump

// Report is the outcome of processing one stored crash.
type Report struct {
	Id           string  `json:"id"`
	BuildVersion string  `json:"build"`
	Signature    string  `json:"signature"`
	CrashType    string  `json:"crash_type"`
	Address      string  `json:"address"`
	DateAdded    string  `json:"date_added"`
	Size         int64   `json:"size"`
	Dump         *Header `json:"dump,omitempty"`
	Skipped      bool    `json:"skipped,omitempty"`
}
