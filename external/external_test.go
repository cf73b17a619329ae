package external

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openclaw/mission-control/config"
)

// fakeRunner answers commands from a table keyed by the joined command line.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     []Command
}

type fakeResponse struct {
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, c Command) (Output, error) {
	f.calls = append(f.calls, c)
	r, ok := f.responses[c.String()]
	if !ok {
		return Output{}, &ExitError{Command: c.String(), ExitCode: 1, Stderr: "unexpected command"}
	}
	return Output{Stdout: r.stdout}, r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCalendar_List_FirstNonEmptyAccountWins(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"gog calendar list --json -a work": {stdout: `{"events":[]}`},
		"gog calendar list --json -a home": {stdout: `{"events":[
			{"id":"e1","summary":"Dentist","start":{"dateTime":"2026-10-20T09:00:00Z"},"end":{"date":"2026-10-20"},"htmlLink":"http://x"}
		]}`},
	}}
	cal := &Calendar{Runner: runner, Bin: "gog", Accounts: []string{"broken", "work", "home"},
		Env: map[string]string{"GOG_KEYRING_PASSWORD": "pw"}, Logger: quietLogger()}

	list := cal.List(context.Background())
	if list.Source != "home" {
		t.Fatalf("Source = %q, want home", list.Source)
	}
	if len(list.Events) != 1 {
		t.Fatalf("events = %d", len(list.Events))
	}
	ev := list.Events[0]
	if ev.Title != "Dentist" || ev.Start != "2026-10-20T09:00:00Z" || ev.End != "2026-10-20" {
		t.Errorf("event = %+v", ev)
	}
	if len(runner.calls[0].Env) != 1 || runner.calls[0].Env[0] != "GOG_KEYRING_PASSWORD=pw" {
		t.Errorf("env = %v", runner.calls[0].Env)
	}
}

func TestCalendar_List_NoAccess(t *testing.T) {
	cal := &Calendar{Runner: &fakeRunner{}, Bin: "gog", Accounts: []string{"a"}, Logger: quietLogger()}
	list := cal.List(context.Background())
	if len(list.Events) != 0 || list.Error != "No calendar access" {
		t.Errorf("list = %+v", list)
	}
}

func TestCalendar_Create(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"gog calendar create primary -a b --summary Lunch --from 2026-10-20T12:00 --to 2026-10-20T13:00": {},
	}}
	cal := &Calendar{Runner: runner, Bin: "gog", Accounts: []string{"a", "b"}, Logger: quietLogger()}
	got, err := cal.Create(context.Background(), NewEvent{Title: "Lunch", Start: "2026-10-20T12:00", End: "2026-10-20T13:00"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Title != "Lunch" {
		t.Errorf("got %+v", got)
	}

	cal.Accounts = []string{"a"}
	if _, err := cal.Create(context.Background(), NewEvent{Title: "x"}); !errors.Is(err, ErrNoCalendarAccess) {
		t.Errorf("err = %v, want ErrNoCalendarAccess", err)
	}
}

func TestCron_Jobs(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"openclaw cron list --json": {stdout: `Loaded config
{"jobs":[
  {"id":"j1","name":"Morning brief","agentId":"main_agent","enabled":false,
   "schedule":{"kind":"cron","expr":"0 7 * * *"},
   "state":{"lastStatus":"ok","lastDurationMs":1200}},
  {"id":"j2","name":"Sync","agentId":"claudius"}
]}`},
	}}
	cron := &Cron{Runner: runner, Bin: "openclaw", Logger: quietLogger()}
	jobs, err := cron.Jobs(context.Background())
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d", len(jobs))
	}
	j1, j2 := jobs[0], jobs[1]
	if j1.AgentName != "@Main Agent" || j1.Enabled || j1.Schedule.Expr != "0 7 * * *" {
		t.Errorf("j1 = %+v", j1)
	}
	if j1.LastDurationMs == nil || *j1.LastDurationMs != 1200 {
		t.Errorf("LastDurationMs = %v", j1.LastDurationMs)
	}
	if !j2.Enabled || j2.LastStatus != "idle" || j2.SessionTarget != "isolated" ||
		j2.WakeMode != "now" || j2.Delivery.Mode != "none" || j2.Payload.Kind != "unknown" {
		t.Errorf("j2 defaults = %+v", j2)
	}
}

func TestCron_Jobs_CommandFails(t *testing.T) {
	cron := &Cron{Runner: &fakeRunner{}, Bin: "openclaw", Logger: quietLogger()}
	if _, err := cron.Jobs(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCron_Runs(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"openclaw cron runs --id j1 --limit 10": {stdout: `{"entries":[{"ts":1,"jobId":"j1","status":"ok","durationMs":50}]}`},
	}}
	cron := &Cron{Runner: runner, Bin: "openclaw", Logger: quietLogger()}
	runs, err := cron.Runs(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].DurationMs != 50 || runs[0].Status != "ok" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestAgentName(t *testing.T) {
	tests := map[string]string{
		"main":       "@Main",
		"main_agent": "@Main Agent",
		"openAI_bot": "@OpenAI Bot",
		"":           "@",
	}
	for in, want := range tests {
		if got := AgentName(in); got != want {
			t.Errorf("AgentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSheets_Values(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"python3 read.py Tab A1:B2":  {stdout: `{"values":[["a","b"],["c",1]]}`},
		"python3 read.py Bare A1:B2": {stdout: `[["x"]]`},
		"python3 read.py Bad A1:B2":  {stdout: `oops`},
	}}
	s := &Sheets{Runner: runner, Python: "python3", Script: "read.py"}

	rows, err := s.Values(context.Background(), "Tab", "A1:B2")
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "1" {
		t.Errorf("rows = %v", rows)
	}
	rows, err = s.Values(context.Background(), "Bare", "A1:B2")
	if err != nil || len(rows) != 1 || rows[0][0] != "x" {
		t.Errorf("bare rows = %v, %v", rows, err)
	}
	if _, err := s.Values(context.Background(), "Bad", "A1:B2"); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseSummary(t *testing.T) {
	rows := [][]string{
		{"Portfolio", "Allocation", "Invested"},
		{},
		{"AI Infra", "40%", "$10,000", "$12,000", "20%", "$0"},
		{"China", "10%"},
		{"TOTAL", "", "$20,000", "$23,000", "15%", "$500"},
		{"After total", "x"},
	}
	sum := parseSummary(rows)
	if len(sum.Portfolios) != 2 {
		t.Fatalf("portfolios = %+v", sum.Portfolios)
	}
	if sum.Portfolios[1].Invested != "" {
		t.Errorf("short row should pad with empty strings: %+v", sum.Portfolios[1])
	}
	if sum.Total.Current != "$23,000" || sum.Total.ToInvest != "$500" {
		t.Errorf("total = %+v", sum.Total)
	}
}

func TestParseHoldings(t *testing.T) {
	t.Run("headers", func(t *testing.T) {
		rows := [][]string{
			{"Ticker", "Shares", "Avg Shares", "Invested", "Current Value", "Gain %"},
			{"NVDA", "10", "", "$1,000", "$1,500", "50%"},
			{"Total", "10"},
			{"AMD", ""},
		}
		got := parseHoldings(rows)
		if len(got) != 1 {
			t.Fatalf("holdings = %+v", got)
		}
		h := got[0]
		if h.Ticker != "NVDA" || h.Shares != "10" || h.CostBasis != "$1,000" || h.CurrentValue != "$1,500" || h.ReturnPct != "50%" {
			t.Errorf("holding = %+v", h)
		}
	})
	t.Run("fallback columns", func(t *testing.T) {
		rows := [][]string{
			{"Symbol", "", "", "", "", "", "", "", "", ""},
			{"TSM", "x", "x", "5", "$500", "x", "x", "$700", "x", "40%"},
		}
		got := parseHoldings(rows)
		if len(got) != 1 || got[0].Shares != "5" || got[0].CurrentValue != "$700" || got[0].ReturnPct != "40%" {
			t.Errorf("holdings = %+v", got)
		}
	})
}

func TestCategorizeAndParseMoney(t *testing.T) {
	cats := map[string]Category{
		"AAPL":            CategoryStock,
		"QQQ":             CategoryETF,
		"FXAIX":           CategoryMutualFund,
		"AAPL 250117C200": CategoryOption,
		"BRK/B":           CategoryOption,
	}
	for ticker, want := range cats {
		if got := Categorize(ticker); got != want {
			t.Errorf("Categorize(%q) = %q, want %q", ticker, got, want)
		}
	}
	if v := ParseMoney("$1,234.50"); v != 1234.5 {
		t.Errorf("ParseMoney = %v", v)
	}
	if v := ParseMoney("n/a"); v != 0 {
		t.Errorf("ParseMoney(n/a) = %v", v)
	}
}

func TestFinance_Accounts(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"python3 read.py Accounts A1:Z10":       {stdout: `[["id","name","type"],["A1","Brokerage","taxable"],["A2","IRA",""]]`},
		"python3 read.py Full Portfolio A1:Z100": {stdout: `[
			["acct","x","ticker","shares","avg","value"],
			["A1","","AAPL","1","100","$100"],
			["A1","","QQQ","2","300","$600"],
			["A1","","MSFT","1","400","$400"],
			["A2","","FXAIX","5","20","$5,000"],
			["A2","","#N/A","1","1","$1"],
			["ZZ","","TSLA","1","1","$9"]
		]`},
		"python3 read.py Schwab Raw A1:J1":      {stdout: `[["","","","","","","","","","2026-10-15 16:00"]]`},
	}}
	f := &Finance{Sheets: &Sheets{Runner: runner, Python: "python3", Script: "read.py"}}
	report, err := f.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(report.Accounts) != 2 {
		t.Fatalf("accounts = %+v", report.Accounts)
	}
	if report.Accounts[0].ID != "A2" || report.Accounts[0].Type != "Unknown" {
		t.Errorf("first account = %+v, want A2 (highest total)", report.Accounts[0])
	}
	a1 := report.Accounts[1]
	if a1.Total != 1100 || len(a1.Holdings.Stocks) != 2 || a1.Holdings.Stocks[0].Ticker != "MSFT" {
		t.Errorf("A1 = %+v", a1)
	}
	if report.Total != 6100 {
		t.Errorf("Total = %v", report.Total)
	}
	if report.LastUpdated == nil || *report.LastUpdated != "2026-10-15 16:00" {
		t.Errorf("LastUpdated = %v", report.LastUpdated)
	}
}

func TestFinance_Holdings(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"python3 read.py China Dashboard A1:Z100": {stdout: `{"values":[["Ticker","Shares"],["BABA","3"]]}`},
	}}
	f := &Finance{
		Sheets:     &Sheets{Runner: runner, Python: "python3", Script: "read.py"},
		Portfolios: config.DefaultConfig().External.Portfolios,
	}
	p, ok := f.Portfolio("china")
	if !ok {
		t.Fatal("china portfolio missing")
	}
	detail, err := f.Holdings(context.Background(), p)
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if detail.ID != "china" || len(detail.Holdings) != 1 || detail.Holdings[0].Ticker != "BABA" {
		t.Errorf("detail = %+v", detail)
	}
}

func TestHealth_Report(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "today.json")
	doc := `{
		"date": "2026-10-16",
		"training_readiness": [{"score": 72, "level": "HIGH"}],
		"sleep": {"dailySleepDTO": {"sleepScores": {"overall": {"value": 85}}}},
		"body_battery": [{"bodyBatteryValuesArray": [[1, 40], [2, 65]]}],
		"heart_rate": {"allMetrics": {"metricsMap": {"WELLNESS_RESTING_HEART_RATE": [{"value": 52}]}}},
		"stress": {"avgStressLevel": 0},
		"steps": [{"steps": 1000}, {"steps": 2500}, {}]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	h := &Health{Path: path, Logger: quietLogger(), Now: func() time.Time { return fixed }}

	r := h.Report()
	if r.Garmin == nil {
		t.Fatal("Garmin = nil")
	}
	g := r.Garmin
	if g.TrainingReadiness.Score == nil || *g.TrainingReadiness.Score != 72 || g.TrainingReadiness.Level != "HIGH" {
		t.Errorf("readiness = %+v", g.TrainingReadiness)
	}
	if g.SleepScore == nil || *g.SleepScore != 85 {
		t.Errorf("SleepScore = %v", g.SleepScore)
	}
	if g.BodyBattery == nil || *g.BodyBattery != 65 {
		t.Errorf("BodyBattery = %v", g.BodyBattery)
	}
	if g.RestingHR == nil || *g.RestingHR != 52 {
		t.Errorf("RestingHR = %v", g.RestingHR)
	}
	if g.StressLevel != nil {
		t.Errorf("StressLevel = %v, want nil for zero", *g.StressLevel)
	}
	if g.Steps != 3500 {
		t.Errorf("Steps = %d", g.Steps)
	}
	if !strings.HasPrefix(r.LastUpdated, "2026-10-16T08:00:00") {
		t.Errorf("LastUpdated = %q", r.LastUpdated)
	}

	missing := (&Health{Path: filepath.Join(dir, "nope.json")}).Report()
	if missing.Garmin != nil {
		t.Error("missing file should yield nil summary")
	}
}

func TestReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	if err := os.WriteFile(path, []byte(`{"total": 5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if string(got) != `{"total": 5}` {
		t.Errorf("got %s", got)
	}
	if _, err := ReadSnapshot(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDocs_Read(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "docs")
	if err := os.MkdirAll(allowed, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(allowed, "readme.md"), []byte("# hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "secret.txt"), []byte("no"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := &Docs{AllowedDirs: []string{allowed}}

	got, err := d.Read(filepath.Join(allowed, "readme.md"))
	if err != nil || got != "# hi" {
		t.Errorf("Read = %q, %v", got, err)
	}
	if _, err := d.Read(filepath.Join(allowed, "..", "secret.txt")); !errors.Is(err, ErrForbidden) {
		t.Errorf("traversal err = %v, want ErrForbidden", err)
	}
	if _, err := d.Read(allowed + "-evil/readme.md"); !errors.Is(err, ErrForbidden) {
		t.Errorf("prefix sibling err = %v, want ErrForbidden", err)
	}
	if _, err := d.Read(filepath.Join(allowed, "missing.md")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}
