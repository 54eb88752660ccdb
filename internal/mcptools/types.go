package mcptools

// --- MCP tool types for the newsroom server mode (--serve-mcp) ---
// These tools are exposed when the binary runs as an MCP server so a client
// can drive article production through structured tool calls instead of
// shelling out.

// RunPipelineInput is the input for the run_pipeline MCP tool.
type RunPipelineInput struct {
	Topic             string `json:"topic" jsonschema:"article topic to research and write"`
	WordCount         int    `json:"wordCount,omitempty" jsonschema:"target article length in words (default: 2000)"`
	Tone              string `json:"tone,omitempty" jsonschema:"writing voice: neutral, technical, or casual (default: neutral)"`
	SkipReferences    bool   `json:"skipReferences,omitempty" jsonschema:"omit the source list from the article"`
	Resume            bool   `json:"resume,omitempty" jsonschema:"resume the most recent failed run for this topic instead of starting over"`
}

// RunPipelineOutput is the result of the run_pipeline MCP tool.
type RunPipelineOutput struct {
	RunID            string  `json:"runId"`
	State            string  `json:"state"` // "completed" or "failed"
	ArtifactLocation string  `json:"artifactLocation,omitempty"`
	StagesCompleted  int     `json:"stagesCompleted"`
	FailedStage      string  `json:"failedStage,omitempty"`
	ErrorKind        string  `json:"errorKind,omitempty"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	EstimatedCost    float64 `json:"estimatedCost"`
	ReportPath       string  `json:"reportPath"`
}

// GetRunStatusInput is the input for the get_run_status MCP tool.
type GetRunStatusInput struct {
	RunID string `json:"runId,omitempty" jsonschema:"run to inspect (default: most recent run)"`
}

// GetRunStatusOutput is the result of the get_run_status MCP tool.
type GetRunStatusOutput struct {
	RunID           string      `json:"runId"`
	Topic           string      `json:"topic"`
	State           string      `json:"state"`
	Stages          []StageInfo `json:"stages"`
	NextStage       string      `json:"nextStage,omitempty"`
	Resumable       bool        `json:"resumable"`
	ArtifactLocation string     `json:"artifactLocation,omitempty"`
	FailedStage     string      `json:"failedStage,omitempty"`
	ErrorKind       string      `json:"errorKind,omitempty"`
}

// StageInfo is the per-stage completion record inside a status reply.
type StageInfo struct {
	Ordinal  int    `json:"ordinal"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
	Attempts int    `json:"attempts,omitempty"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Topic string `json:"topic,omitempty" jsonschema:"only list runs for this topic"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs []RunOverview `json:"runs"`
}

// RunOverview is a brief record of one stored run.
type RunOverview struct {
	RunID     string `json:"runId"`
	Topic     string `json:"topic"`
	State     string `json:"state"`
	Resumable bool   `json:"resumable"`
	StartedAt string `json:"startedAt"`
}

// GetMetricsInput is the input for the get_metrics MCP tool.
type GetMetricsInput struct {
	RunID string `json:"runId" jsonschema:"run whose metrics to return"`
}

// GetMetricsOutput is the result of the get_metrics MCP tool.
type GetMetricsOutput struct {
	RunID         string         `json:"runId"`
	Stages        []StageMetrics `json:"stages"`
	TotalAttempts int            `json:"totalAttempts"`
	TotalRetries  int            `json:"totalRetries"`
	TotalSeconds  float64        `json:"totalSeconds"`
	EstimatedCost float64        `json:"estimatedCost"`
}

// StageMetrics is the per-stage slice of a metrics reply.
type StageMetrics struct {
	Name      string  `json:"name"`
	Attempts  int     `json:"attempts"`
	Retries   int     `json:"retries"`
	Seconds   float64 `json:"seconds"`
	Succeeded bool    `json:"succeeded"`
}
