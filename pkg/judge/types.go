package judge

// TestCase carries the per-case execution parameters sent to the
// judge alongside the shared source code.
type TestCase struct {
	Stdin           string
	ExpectedOutput  string
	CPUTimeLimitSec float64
	MemoryLimitKB   int
}

// Result is the judge's view of a single queued execution, as
// returned by a batched status query.
type Result struct {
	Token    string
	Status   string
	Stdout   string
	Stderr   string
	TimeSec  float64
	MemoryKB int64
}

type wireSubmission struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin,omitempty"`
	ExpectedOutput string  `json:"expected_output,omitempty"`
	CPUTimeLimit   float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    int     `json:"memory_limit,omitempty"`
}

type wireBatchRequest struct {
	Submissions []wireSubmission `json:"submissions"`
}

type wireToken struct {
	Token string `json:"token"`
}

type wireStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type wireResult struct {
	Token    string     `json:"token"`
	Status   wireStatus `json:"status"`
	Stdout   string     `json:"stdout"`
	Stderr   string     `json:"stderr"`
	Time     string     `json:"time"`
	Memory   int64      `json:"memory"`
	Message  string     `json:"message,omitempty"`
}

type wireBatchResponse struct {
	Submissions []wireResult `json:"submissions"`
}
