package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"photoport/internal/config"
	"photoport/internal/migration"
	"photoport/internal/services"
	"photoport/internal/state"
	"photoport/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
	archive    *testsupport.Archive
}

func setupCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	cfg := testsupport.NewConfig(t, opts...)
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(base, "photoport.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	archive := testsupport.NewArchive(t)
	archive.Media("Takeout/Google Photos/Trip/IMG_0001.JPG")
	archive.Sidecar("Takeout/Google Photos/Trip/IMG_0001.JPG.json", testsupport.SidecarDoc{
		Taken:     time.Date(2021, 7, 4, 12, 0, 0, 0, time.UTC),
		Lat:       testsupport.Float(40),
		Lon:       testsupport.Float(-74),
		Favorited: testsupport.Bool(true),
	})
	archive.Media("Takeout/Google Photos/Trip/IMG_0001.MP")
	archive.Media("Takeout/Google Photos/Trip/IMG_0002.JPG")
	return &cliEnv{cfg: cfg, configPath: configPath, archive: archive}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--quiet"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	out, _, err = runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[batch]")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestMigrateJSONAndRuns(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := runCLI(t, env.configPath, "migrate", "--json", env.archive.Root)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var summary migration.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Status != migration.StatusCompleted || summary.TotalItems != 2 || summary.Succeeded != 2 || summary.Pairs != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	out, _, err = runCLI(t, env.configPath, "runs", "--json")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var runs []state.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Status != state.RunCompleted {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out, _, err = runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs table: %v", err)
	}
	requireContains(t, out, "Completed")

	out, _, err = runCLI(t, env.configPath, "runs", "show", shortID(summary.RunID))
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, `"pairs": 1`)
}

func TestMigrateSendsRunNotification(t *testing.T) {
	var mu sync.Mutex
	var titles, bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLIEnv(t, testsupport.WithNtfyTopic(server.URL))
	if _, _, err := runCLI(t, env.configPath, "migrate", "--json", env.archive.Root); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	snapshot := func() ([]string, []string) {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), titles...), append([]string(nil), bodies...)
	}

	gotTitles, gotBodies := snapshot()
	if len(gotTitles) != 1 || gotTitles[0] != "photoport - Migration complete" {
		t.Fatalf("unexpected notifications %v", gotTitles)
	}
	requireContains(t, gotBodies[0], "2 imported, 0 skipped")
	requireContains(t, gotBodies[0], "Live photos: 1")

	out, _, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if gotTitles, _ = snapshot(); len(gotTitles) != 2 || gotTitles[1] != "photoport - Test" {
		t.Fatalf("unexpected notifications %v", gotTitles)
	}
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestMigrateTableOutput(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env.configPath, "migrate", env.archive.Root)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	requireContains(t, out, "== Migration ==")
	requireContains(t, out, "[OK] Completed")
	requireContains(t, out, "Pairs")
}

func TestMigrateManifestMode(t *testing.T) {
	env := setupCLIEnv(t)
	if _, _, err := runCLI(t, env.configPath, "migrate", "--mode", "manifest", "--workers", "2", env.archive.Root); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	file, err := os.Open(env.cfg.Paths.ManifestPath)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer file.Close()
	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Fatalf("manifest lines = %d, want 2", lines)
	}
}

func TestMigrateRejectsBadFlags(t *testing.T) {
	env := setupCLIEnv(t)
	_, _, err := runCLI(t, env.configPath, "migrate", "--mode", "cloud", env.archive.Root)
	if err == nil {
		t.Fatal("expected invalid mode error")
	}
	if code := exitCode(err); code != exitFailure {
		t.Fatalf("invalid flag exit code = %d, want %d", code, exitFailure)
	}
	if _, _, err := runCLI(t, env.configPath, "migrate", "--workers", "-1", env.archive.Root); err == nil {
		t.Fatal("expected invalid workers error")
	}
	_, _, err = runCLI(t, env.configPath, "migrate", filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected missing root error")
	}
	if code := exitCode(err); code != exitFatalRun {
		t.Fatalf("missing root exit code = %d, want %d (%v)", code, exitFatalRun, err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "plain failure", err: errors.New("boom"), want: exitFailure},
		{name: "enumeration", err: services.Wrap(services.ErrEnumeration, "scan", "walk", "/archive", errors.New("denied")), want: exitFatalRun},
		{name: "configuration", err: services.Wrap(services.ErrConfiguration, "migration", "resume", "no journal", nil), want: exitFatalRun},
		{name: "import is not fatal", err: services.Wrap(services.ErrImport, "import", "copy", "a.jpg", nil), want: exitFailure},
		{name: "context cancelled", err: fmt.Errorf("run: %w", context.Canceled), want: exitInterrupted},
		{name: "cancel marker", err: services.Wrap(services.ErrCancelled, "batch", "", "stop", nil), want: exitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScanCommand(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env.configPath, "scan", env.archive.Root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Matched")
	requireContains(t, out, "Trip")

	out, _, err = runCLI(t, env.configPath, "scan", "--json", env.archive.Root)
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}
	var report migration.ScanReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Media != 3 || report.Pairs != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDoctor(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env.configPath, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "State directory")
	requireContains(t, out, "FFprobe")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHandleInterruptsTwoStage(t *testing.T) {
	sigs := make(chan os.Signal, 2)
	done := make(chan struct{})
	flag := &migration.Flag{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}

	finished := make(chan struct{})
	go func() {
		handleInterrupts(ctx, sigs, done, flag, cancel, out)
		close(finished)
	}()

	sigs <- syscall.SIGINT
	deadline := time.After(2 * time.Second)
	for !flag.Cancelled() {
		select {
		case <-deadline:
			t.Fatal("first interrupt did not set the flag")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if ctx.Err() != nil {
		t.Fatal("first interrupt must not cancel the context")
	}

	sigs <- syscall.SIGINT
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("second interrupt did not stop the handler")
	}
	if ctx.Err() == nil {
		t.Fatal("second interrupt must cancel the context")
	}
	requireContains(t, out.String(), "finishing the current batch")
}

func TestDisplayStatus(t *testing.T) {
	tests := map[string]string{
		"completed":          "Completed",
		"no_metadata_source": "No Metadata Source",
		"":                   "",
	}
	for in, want := range tests {
		if got := displayStatus(in); got != want {
			t.Errorf("displayStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
