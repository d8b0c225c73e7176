package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/config"
	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/store"
)

const cliJobs = `{"total":2,"items":[
	{"id":1,"status":"copying","file_name":"live.mov","file_size":1048576,"progress_percent":40,"created_at":"2026-01-02T10:00:00Z"},
	{"id":2,"status":"failed","file_name":"broken.mov","error_message":"disk full","created_at":"2026-01-02T09:00:00Z"}
]}`

func newFakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/transfers":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, cliJobs)
		case "/api/v1/transfers/1/report":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="../../etc/report-1.pdf"`)
			_, _ = io.WriteString(w, "%PDF-1.4 report")
		case "/api/v1/transfers/9/cancel":
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"detail":"Transfer already completed"}`)
		case "/api/v1/status":
			_, _ = io.WriteString(w, `{"api":"operational","database":"disconnected","redis":"connected","worker":"1 active","version":"2.1.0"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// useGlobals points the command globals at a fake node and an in-memory
// journal for the duration of the test.
func useGlobals(t *testing.T, nodeURL string) *store.Store {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := gateway.New(gateway.Options{BaseURL: nodeURL + "/api/v1", Timeout: 5 * time.Second, Logger: quiet})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	st := newTestStore(t)

	origCfg, origClient, origStore, origLogger, origJSON := globalCfg, globalClient, globalStore, logger, jsonOut
	globalCfg = config.DefaultConfig()
	globalClient = client
	globalStore = st
	logger = quiet
	jsonOut = false
	t.Cleanup(func() {
		globalCfg, globalClient, globalStore, logger, jsonOut = origCfg, origClient, origStore, origLogger, origJSON
	})
	return st
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	_ = r.Close()
	return string(data)
}

func TestTransfersListRun_SplitsViews(t *testing.T) {
	node := newFakeNode(t)
	useGlobals(t, node.URL)

	cmd := newTransfersListCmd()
	cmd.SetContext(context.Background())
	out := captureStdout(t, func() {
		if err := transfersListRun(cmd, nil); err != nil {
			t.Fatalf("transfersListRun returned error: %v", err)
		}
	})

	for _, want := range []string{"Transfers: 2 total", "Active (1)", "live.mov", "History (1)", "broken.mov", "1 MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestTransfersReportRun_SavesUnderOutputDir(t *testing.T) {
	node := newFakeNode(t)
	st := useGlobals(t, node.URL)

	dir := t.TempDir()
	origOut := reportOut
	t.Cleanup(func() { reportOut = origOut })

	cmd := newTransfersReportCmd()
	cmd.SetContext(context.Background())
	if err := cmd.Flags().Set("out", dir); err != nil {
		t.Fatalf("setting --out: %v", err)
	}
	out := captureStdout(t, func() {
		if err := transfersReportRun(cmd, []string{"1"}); err != nil {
			t.Fatalf("transfersReportRun returned error: %v", err)
		}
	})

	path := filepath.Join(dir, "report-1.pdf")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not saved: %v (output: %s)", err, out)
	}
	if string(data) != "%PDF-1.4 report" {
		t.Fatalf("unexpected report body %q", data)
	}

	downloads, err := st.ListReportDownloads(10)
	if err != nil {
		t.Fatalf("listing downloads: %v", err)
	}
	if len(downloads) != 1 || downloads[0].TransferID != "1" {
		t.Fatalf("expected one journaled download for transfer 1, got %+v", downloads)
	}
}

func TestTransferActionCmd_JournalsFailure(t *testing.T) {
	node := newFakeNode(t)
	st := useGlobals(t, node.URL)

	cmd := newTransfersCmd()
	cmd.SetArgs([]string{"cancel", "9"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for rejected cancel")
	}
	if !strings.Contains(err.Error(), "Transfer already completed") {
		t.Fatalf("unexpected error: %v", err)
	}

	actions, err := st.ListActions("9", 10)
	if err != nil {
		t.Fatalf("listing actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected one action, got %d", len(actions))
	}
	if actions[0].Action != "cancel" || actions[0].StatusCode != http.StatusConflict {
		t.Fatalf("unexpected action %+v", actions[0])
	}
}

func TestStatusRun_ClassifiesComponents(t *testing.T) {
	node := newFakeNode(t)
	useGlobals(t, node.URL)

	cmd := newStatusCmd()
	cmd.SetContext(context.Background())
	out := captureStdout(t, func() {
		if err := statusRun(cmd, nil); err != nil {
			t.Fatalf("statusRun returned error: %v", err)
		}
	})

	if !strings.Contains(out, "disconnected") || !strings.Contains(out, "critical") {
		t.Fatalf("expected disconnected database to be critical, got:\n%s", out)
	}
	if !strings.Contains(out, "Version: 2.1.0") {
		t.Fatalf("expected version line, got:\n%s", out)
	}
}

func TestConfigInitRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "transferwatch.yaml")

	captureStdout(t, func() {
		if err := configInitRun(nil, []string{path}); err != nil {
			t.Fatalf("configInitRun returned error: %v", err)
		}
	})

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:8090" {
		t.Errorf("expected default listen address, got %q", cfg.Server.Listen)
	}

	if err := configInitRun(nil, []string{path}); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "transferwatch.yaml")
	if err := os.WriteFile(cfgFile, []byte("gateway:\n  base_url: http://file-node:8000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("TRANSFERWATCH_LISTEN=127.0.0.1:9999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	origPath, origEnv, origAPI, origCfg, origLogger := cfgPath, envFile, apiURL, globalCfg, logger
	t.Cleanup(func() {
		cfgPath, envFile, apiURL, globalCfg, logger = origPath, origEnv, origAPI, origCfg, origLogger
	})
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfgPath = cfgFile
	envFile = dotenv
	apiURL = "http://127.0.0.1:8123"

	if err := loadConfig(); err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if globalCfg.Gateway.BaseURL != "http://127.0.0.1:8123" {
		t.Errorf("expected --api-url to win, got %q", globalCfg.Gateway.BaseURL)
	}
	if globalCfg.Server.Listen != "127.0.0.1:9999" {
		t.Errorf("expected dotenv listen address, got %q", globalCfg.Server.Listen)
	}
}

func TestCommandClassification(t *testing.T) {
	for _, name := range []string{"serve", "cancel", "report", "reload"} {
		if !needsJournal(name) {
			t.Errorf("%s should open the journal", name)
		}
	}
	for _, name := range []string{"list", "status", "watch"} {
		if needsJournal(name) {
			t.Errorf("%s should not open the journal", name)
		}
	}
	if !shouldSkipComponentInit("config") || shouldSkipComponentInit("serve") {
		t.Error("unexpected component init classification")
	}
}

func TestStatusFlagsListWireStatuses(t *testing.T) {
	for name, cmd := range map[string]*cobra.Command{
		"transfers list": newTransfersListCmd(),
		"watch":          newWatchCmd(),
	} {
		f := cmd.Flags().Lookup("status")
		if f == nil {
			t.Fatalf("%s: no --status flag", name)
		}
		if strings.Contains(f.Usage, "in_progress") {
			t.Errorf("%s: usage names a status the node never sends: %q", name, f.Usage)
		}
		for _, s := range []string{"validating", "copying", "verifying"} {
			if !strings.Contains(f.Usage, s) {
				t.Errorf("%s: usage %q missing %q", name, f.Usage, s)
			}
		}
	}
	if strings.Contains(newWatchCmd().Example, "in_progress") {
		t.Error("watch example uses in_progress")
	}
}
