package session

// Result is the uniform record produced by one command execution.
// It is immutable after creation and serialized to callers as-is.
//
// ReturnCode is informational only: the agent never inspects the
// shell's real exit status, so the value is always -1.
type Result struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	ReturnCode int    `json:"return_code"`
	Duration   string `json:"duration"`
	Command    string `json:"command"`
}
