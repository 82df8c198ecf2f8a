// Package protocol defines the JSON-RPC surface shared by the drt client
// and the drtd daemon.
package protocol

// Method names served by the daemon.
const (
	MethodRun      = "drt/run"
	MethodLast     = "drt/last"
	MethodStatus   = "drt/status"
	MethodShutdown = "drt/shutdown"
)

// Empty filter values for RunRequest.Empty.
const (
	EmptyAll  = "all"
	EmptyOnly = "only"
	EmptyNone = "none"
)

type RunRequest struct {
	// Targets to test. Empty means the whole project root.
	Targets  []string `json:"targets,omitempty"`
	FailFast bool     `json:"failFast,omitempty"`
	Empty    string   `json:"empty,omitempty"`
}

type TargetReport struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"durationMs"`
	Attempted  int    `json:"attempted"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

type RunResponse struct {
	RunID     string         `json:"runId,omitempty"`
	StartedAt string         `json:"startedAt"`
	Targets   []TargetReport `json:"targets"`
	Passed    bool           `json:"passed"`
	FromWatch bool           `json:"fromWatch,omitempty"`
}

type StatusResponse struct {
	PID        int    `json:"pid"`
	Root       string `json:"root"`
	UptimeSec  int64  `json:"uptimeSec"`
	Watching   bool   `json:"watching"`
	RunsServed int64  `json:"runsServed"`
}

type ShutdownResponse struct {
	OK bool `json:"ok"`
}
