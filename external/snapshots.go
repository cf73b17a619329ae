package external

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ReadSnapshot returns the JSON document at path unchanged. A missing file
// is ErrNotFound.
func ReadSnapshot(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("snapshot %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// Readiness is the training readiness score and level.
type Readiness struct {
	Score *float64 `json:"score"`
	Level string   `json:"level"`
}

// GarminSummary is the daily health summary shown on the health page.
type GarminSummary struct {
	Date              string    `json:"date"`
	TrainingReadiness Readiness `json:"training_readiness"`
	SleepScore        *float64  `json:"sleep_score"`
	BodyBattery       *float64  `json:"body_battery"`
	RestingHR         *float64  `json:"resting_hr"`
	StressLevel       *float64  `json:"stress_level"`
	Steps             int64     `json:"steps"`
}

// HealthReport wraps the summary; Garmin is nil when no snapshot exists.
type HealthReport struct {
	Garmin      *GarminSummary `json:"garmin"`
	LastUpdated string         `json:"lastUpdated"`
}

// Health summarizes the Garmin snapshot file.
type Health struct {
	Path   string
	Logger *slog.Logger
	Now    func() time.Time
}

// Report reads the snapshot. Missing or malformed files yield a report
// with a nil summary.
func (h *Health) Report() HealthReport {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	report := HealthReport{LastUpdated: now().UTC().Format(time.RFC3339Nano)}

	data, err := os.ReadFile(h.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && h.Logger != nil {
			h.Logger.Warn("read garmin snapshot", slog.String("path", h.Path), slog.Any("err", err))
		}
		return report
	}
	if !gjson.ValidBytes(data) {
		if h.Logger != nil {
			h.Logger.Warn("garmin snapshot is not valid JSON", slog.String("path", h.Path))
		}
		return report
	}
	report.Garmin = summarizeGarmin(gjson.ParseBytes(data))
	return report
}

func summarizeGarmin(doc gjson.Result) *GarminSummary {
	tr := doc.Get("training_readiness")
	if tr.IsArray() {
		tr = tr.Get("0")
	}
	level := tr.Get("level").String()
	if level == "" {
		level = "Unknown"
	}

	var bodyBattery *float64
	if values := doc.Get("body_battery.0.bodyBatteryValuesArray").Array(); len(values) > 0 {
		bodyBattery = nonZero(values[len(values)-1].Get("1"))
	}

	var steps int64
	doc.Get("steps").ForEach(func(_, s gjson.Result) bool {
		steps += s.Get("steps").Int()
		return true
	})

	return &GarminSummary{
		Date:              doc.Get("date").String(),
		TrainingReadiness: Readiness{Score: nonZero(tr.Get("score")), Level: level},
		SleepScore:        nonZero(doc.Get("sleep.dailySleepDTO.sleepScores.overall.value")),
		BodyBattery:       bodyBattery,
		RestingHR:         nonZero(doc.Get("heart_rate.allMetrics.metricsMap.WELLNESS_RESTING_HEART_RATE.0.value")),
		StressLevel:       nonZero(doc.Get("stress.avgStressLevel")),
		Steps:             steps,
	}
}

// nonZero returns the numeric value, or nil when absent or zero.
func nonZero(r gjson.Result) *float64 {
	if r.Type != gjson.Number || r.Num == 0 {
		return nil
	}
	v := r.Num
	return &v
}

// Docs serves text files from a fixed set of directories.
type Docs struct {
	AllowedDirs []string
}

// Read returns the content of path. Paths outside the allowed directories,
// including ones that climb out with "..", are ErrForbidden.
func (d *Docs) Read(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrForbidden)
	}
	if !d.allowed(abs) {
		return "", fmt.Errorf("%s: %w", path, ErrForbidden)
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read doc: %w", err)
	}
	return string(data), nil
}

func (d *Docs) allowed(abs string) bool {
	for _, dir := range d.AllowedDirs {
		root, err := filepath.Abs(filepath.Clean(dir))
		if err != nil {
			continue
		}
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
