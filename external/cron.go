package external

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CronSchedule describes when a job fires.
type CronSchedule struct {
	Kind string `json:"kind"`
	Expr string `json:"expr,omitempty"`
	TZ   string `json:"tz,omitempty"`
}

// CronPayload is what a job sends to its agent.
type CronPayload struct {
	Kind           string `json:"kind"`
	Message        string `json:"message,omitempty"`
	Model          string `json:"model,omitempty"`
	TimeoutSeconds *int64 `json:"timeoutSeconds,omitempty"`
}

// CronDelivery says where a job's output goes.
type CronDelivery struct {
	Mode    string `json:"mode"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// CronJob is a scheduled agent job with its last known state.
type CronJob struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	AgentID           string       `json:"agentId"`
	AgentName         string       `json:"agentName"`
	Enabled           bool         `json:"enabled"`
	CreatedAtMs       int64        `json:"createdAtMs"`
	UpdatedAtMs       int64        `json:"updatedAtMs"`
	Schedule          CronSchedule `json:"schedule"`
	SessionTarget     string       `json:"sessionTarget"`
	WakeMode          string       `json:"wakeMode"`
	Payload           CronPayload  `json:"payload"`
	Delivery          CronDelivery `json:"delivery"`
	NextRunAtMs       int64        `json:"nextRunAtMs"`
	LastRunAtMs       int64        `json:"lastRunAtMs"`
	LastStatus        string       `json:"lastStatus"`
	LastDurationMs    *int64       `json:"lastDurationMs,omitempty"`
	ConsecutiveErrors *int64       `json:"consecutiveErrors,omitempty"`
}

// CronRun is one past execution of a job.
type CronRun struct {
	TS          int64  `json:"ts"`
	JobID       string `json:"jobId"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	Summary     string `json:"summary,omitempty"`
	RunAtMs     int64  `json:"runAtMs"`
	DurationMs  int64  `json:"durationMs"`
	NextRunAtMs int64  `json:"nextRunAtMs"`
}

// RunsLimit is how many past runs are fetched per job.
const RunsLimit = "10"

// Cron reads job state from the cron CLI.
type Cron struct {
	Runner Runner
	Bin    string
	Logger *slog.Logger
}

func (c *Cron) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Jobs lists the scheduled jobs. Unparseable output yields an empty list.
func (c *Cron) Jobs(ctx context.Context) ([]CronJob, error) {
	out, err := c.Runner.Run(ctx, Command{Name: c.Bin, Args: []string{"cron", "list", "--json"}})
	if err != nil {
		return nil, err
	}
	raw, ok := jsonFrom(out.Stdout)
	if !ok || !gjson.Valid(raw) {
		c.logger().Warn("unparseable cron list output", slog.Int("bytes", len(out.Stdout)))
		return []CronJob{}, nil
	}
	return parseJobs(raw), nil
}

func parseJobs(raw string) []CronJob {
	jobs := []CronJob{}
	gjson.Get(raw, "jobs").ForEach(func(_, j gjson.Result) bool {
		enabled := true
		if v := j.Get("enabled"); v.Exists() && v.Type != gjson.Null {
			enabled = v.Bool()
		}
		job := CronJob{
			ID:          j.Get("id").String(),
			Name:        j.Get("name").String(),
			AgentID:     j.Get("agentId").String(),
			Enabled:     enabled,
			CreatedAtMs: j.Get("createdAtMs").Int(),
			UpdatedAtMs: j.Get("updatedAtMs").Int(),
			Schedule: CronSchedule{
				Kind: orDefault(j.Get("schedule.kind").String(), "unknown"),
				Expr: j.Get("schedule.expr").String(),
				TZ:   j.Get("schedule.tz").String(),
			},
			SessionTarget: orDefault(j.Get("sessionTarget").String(), "isolated"),
			WakeMode:      orDefault(j.Get("wakeMode").String(), "now"),
			Payload: CronPayload{
				Kind:           orDefault(j.Get("payload.kind").String(), "unknown"),
				Message:        j.Get("payload.message").String(),
				Model:          j.Get("payload.model").String(),
				TimeoutSeconds: optInt(j.Get("payload.timeoutSeconds")),
			},
			Delivery: CronDelivery{
				Mode:    orDefault(j.Get("delivery.mode").String(), "none"),
				Channel: j.Get("delivery.channel").String(),
				To:      j.Get("delivery.to").String(),
			},
			NextRunAtMs:       j.Get("state.nextRunAtMs").Int(),
			LastRunAtMs:       j.Get("state.lastRunAtMs").Int(),
			LastStatus:        orDefault(j.Get("state.lastStatus").String(), "idle"),
			LastDurationMs:    optInt(j.Get("state.lastDurationMs")),
			ConsecutiveErrors: optInt(j.Get("state.consecutiveErrors")),
		}
		job.AgentName = AgentName(job.AgentID)
		jobs = append(jobs, job)
		return true
	})
	return jobs
}

// Runs returns the most recent runs of job id.
func (c *Cron) Runs(ctx context.Context, id string) ([]CronRun, error) {
	out, err := c.Runner.Run(ctx, Command{
		Name: c.Bin,
		Args: []string{"cron", "runs", "--id", id, "--limit", RunsLimit},
	})
	if err != nil {
		return nil, err
	}
	runs := []CronRun{}
	raw, ok := jsonFrom(out.Stdout)
	if !ok || !gjson.Valid(raw) {
		c.logger().Warn("unparseable cron runs output", slog.String("job", id))
		return runs, nil
	}
	gjson.Get(raw, "entries").ForEach(func(_, e gjson.Result) bool {
		runs = append(runs, CronRun{
			TS:          e.Get("ts").Int(),
			JobID:       e.Get("jobId").String(),
			Action:      e.Get("action").String(),
			Status:      e.Get("status").String(),
			Summary:     e.Get("summary").String(),
			RunAtMs:     e.Get("runAtMs").Int(),
			DurationMs:  e.Get("durationMs").Int(),
			NextRunAtMs: e.Get("nextRunAtMs").Int(),
		})
		return true
	})
	return runs, nil
}

// AgentName renders an agent id for display: "main_agent" becomes
// "@Main Agent".
func AgentName(agentID string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	parts := strings.Split(agentID, "_")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return "@" + strings.Join(parts, " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func optInt(r gjson.Result) *int64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	v := r.Int()
	return &v
}
