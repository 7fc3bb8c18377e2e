package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"photoport/internal/issue"
	"photoport/internal/memory"
)

func TestRecorderExportsCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.ObserveProcessed(ResultSucceeded)
	r.ObserveProcessed(ResultSucceeded)
	r.ObserveProcessed(ResultFailed)
	r.ObservePair("name")
	r.ObserveIssues(issue.New(issue.Metadata, "a", "x"), issue.New(issue.Pairing, "b", "y"), issue.New(issue.Metadata, "c", "z"))
	r.ObserveBatch(25, 300*time.Millisecond)
	r.ObserveMemory(memory.Sample{Used: 1024, Level: memory.High})

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	checks := []struct {
		name, label, value string
		want               float64
	}{
		{"photoport_assets_processed_total", "result", ResultSucceeded, 2},
		{"photoport_assets_processed_total", "result", ResultFailed, 1},
		{"photoport_pairs_reconstructed_total", "signal", "name", 1},
		{"photoport_issues_total", "category", "metadata", 2},
		{"photoport_issues_total", "category", "pairing", 1},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s{%s=%s} = %v, want %v", c.name, c.label, c.value, got, c.want)
		}
	}
	if got := gaugeValue(t, mfs, "photoport_batch_size"); got != 25 {
		t.Errorf("batch size = %v", got)
	}
	if got := gaugeValue(t, mfs, "photoport_memory_pressure_level"); got != float64(memory.High) {
		t.Errorf("pressure = %v", got)
	}
	if got := gaugeValue(t, mfs, "photoport_memory_used_bytes"); got != 1024 {
		t.Errorf("memory = %v", got)
	}
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	r.ObserveProcessed(ResultSucceeded)
	r.ObserveBatch(1, time.Second)
	inert := New(nil)
	inert.ObservePair("name")
	inert.ObserveMemory(memory.Sample{})
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObserveProcessed(ResultSkipped)
	path := filepath.Join(t.TempDir(), "photoport.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `photoport_assets_processed_total{result="skipped"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
	if err := WriteTextfile("", reg); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}

func gaugeValue(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatalf("gauge %q not found", name)
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
