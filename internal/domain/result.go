package domain

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

type SkipReason string

const (
	SkipInvalidCredentials SkipReason = "invalid_credentials"
	SkipIPWhitelist        SkipReason = "ip_whitelist_error"
	SkipAuthError          SkipReason = "auth_error"
	SkipBatchTimeout       SkipReason = "batch_timeout"
)

// ExecutionResult records one attempt at applying a schedule. Exactly one is
// produced per due schedule per run, including schedules that were skipped.
type ExecutionResult struct {
	ScheduleID int64      `json:"schedule_id"`
	ShopID     int64      `json:"shop_id"`
	CampaignID int64      `json:"campaign_id"`
	Budget     int64      `json:"budget"`
	Outcome    Outcome    `json:"outcome"`
	Error      string     `json:"error,omitempty"`
	Retries    int        `json:"retries"`
	SkipReason SkipReason `json:"skip_reason,omitempty"`
	FinishedAt time.Time  `json:"finished_at"`
}

// RunSummary is what a scheduler run returns to its caller. It is always
// well-formed: partial and total failures are reflected in the counts and
// per-item results, with Error reserved for catastrophic conditions such as
// an unreachable schedule store.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	Processed  int               `json:"processed"`
	Succeeded  int               `json:"success_count"`
	Failed     int               `json:"failure_count"`
	Skipped    int               `json:"skipped_count"`
	DurationMS int64             `json:"duration_ms"`
	Results    []ExecutionResult `json:"results"`
	Error      string            `json:"error,omitempty"`
}

func (s *RunSummary) Tally() {
	s.Processed = len(s.Results)
	s.Succeeded, s.Failed, s.Skipped = 0, 0, 0
	for _, r := range s.Results {
		switch r.Outcome {
		case OutcomeSuccess:
			s.Succeeded++
		case OutcomeFailure:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
}
