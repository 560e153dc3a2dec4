package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Signal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	FailedStages      int            `json:"failed_stages"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report records what each pipeline stage did and which recoverable
// conditions it hit. Saved next to the batch plan for the orchestrator.
type Report struct {
	Version     string        `json:"version"`
	GeneratedAt string        `json:"generated_at"`
	Stages      []StageMetric `json:"stages"`
	Signals     []Signal      `json:"signals,omitempty"`
	Summary     ReportSummary `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewReport() *Report {
	return &Report{
		Version:     "v1",
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Signals:     []Signal{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *Report) EndStage(h StageHandle, counters map[string]float64, err error) {
	if r == nil || h.name == "" {
		return
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   counters,
	}
	if err != nil {
		m.Status = "error"
		m.Error = err.Error()
	}
	r.Stages = append(r.Stages, m)
}

func (r *Report) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := Signal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	sort.Slice(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})

	severityCount := map[string]int{}
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		FailedStages:      failed,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
