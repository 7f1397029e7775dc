package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	httpapi "github.com/vladislavdragonenkov/orders/internal/transport/http"
)

type fakeOrdersAPI struct {
	createFn func(context.Context, string, time.Time) (string, error)
	getFn    func(context.Context, string) error
	listFn   func(context.Context, int, int) error
	deleteFn func(context.Context, string) error
}

func (f *fakeOrdersAPI) CreateOrder(ctx context.Context, customerID string, createdAt time.Time) (string, error) {
	if f.createFn == nil {
		return "", errors.New("unexpected CreateOrder call")
	}
	return f.createFn(ctx, customerID, createdAt)
}

func (f *fakeOrdersAPI) GetOrder(ctx context.Context, id string) error {
	if f.getFn == nil {
		return errors.New("unexpected GetOrder call")
	}
	return f.getFn(ctx, id)
}

func (f *fakeOrdersAPI) ListOrders(ctx context.Context, page, perPage int) error {
	if f.listFn == nil {
		return errors.New("unexpected ListOrders call")
	}
	return f.listFn(ctx, page, perPage)
}

func (f *fakeOrdersAPI) DeleteOrder(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return errors.New("unexpected DeleteOrder call")
	}
	return f.deleteFn(ctx, id)
}

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func newOrdersServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := log.NewEntry(logger)

	svc := orders.NewService(memory.NewOrderRepository(), orders.WithLogger(entry))
	srv := httptest.NewServer(httpapi.NewRouter(svc, httpapi.RouterOptions{Logger: entry}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "create", input: "create", want: modeCreate},
		{name: "create-get", input: " create-get ", want: modeCreateGet},
		{name: "create-get-delete", input: "create-get-delete", want: modeCreateGetDelete},
		{name: "list", input: "list", want: modeList},
		{name: "unsupported", input: "create-pay", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-addr=127.0.0.1:8085/",
			"-mode=create-get",
			"-total=12",
			"-concurrency=3",
			"-timeout=2s",
			"-per-page=25",
			"-customer-tag=stage",
			"-output=/tmp/out.json",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet {
				t.Fatalf("expected totalSet=true")
			}
			if cfg.addr != "http://127.0.0.1:8085" {
				t.Fatalf("unexpected addr: %s", cfg.addr)
			}
			if cfg.mode != modeCreateGet {
				t.Fatalf("unexpected mode: %s", cfg.mode)
			}
			if cfg.total != 12 || cfg.concurrency != 3 || cfg.perPage != 25 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.timeout != 2*time.Second {
				t.Fatalf("unexpected timeout: %s", cfg.timeout)
			}
		})
	})

	t.Run("duration mode", func(t *testing.T) {
		withCLIArgs(t, []string{"-duration=3s", "-concurrency=2"}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatalf("expected totalSet=false when -total was not provided")
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "zero per page", args: []string{"-per-page=0"}, wantErr: "per-page must be > 0"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "bad mode", args: []string{"-mode=refund"}, wantErr: "unsupported mode"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record("scenario", 10*time.Millisecond, "ok", true)
	c.record("scenario", 20*time.Millisecond, "503", false)
	c.record("CreateOrder", 15*time.Millisecond, "ok", true)

	snap, ok := c.snapshot("scenario")
	if !ok {
		t.Fatalf("scenario snapshot missing")
	}
	if snap.Calls != 2 || snap.Success != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}
	if snap.Statuses["ok"] != 1 || snap.Statuses["503"] != 1 {
		t.Fatalf("unexpected statuses: %+v", snap.Statuses)
	}

	r := c.buildReport(time.Now(), 2*time.Second)
	if r.TotalScenarios != 2 || r.FailedScenarios != 1 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.RPS <= 0 {
		t.Fatalf("expected positive rps, got %f", r.RPS)
	}
	if _, ok := r.Methods["CreateOrder"]; !ok {
		t.Fatalf("expected CreateOrder stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := statusLabel(nil); got != "ok" {
		t.Fatalf("statusLabel(nil) = %s", got)
	}
	if got := statusLabel(&statusError{status: http.StatusServiceUnavailable}); got != "503" {
		t.Fatalf("unexpected status label: %s", got)
	}
	if got := statusLabel(errors.New("dial tcp: refused")); got != statusTransportError {
		t.Fatalf("unexpected transport label: %s", got)
	}

	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	summary := buildLatencySummary([]float64{10, 20, 30, 40})
	if summary.P50 != 25 || summary.Min != 10 || summary.Max != 40 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}

	if got := runTarget(config{total: 50}); got != "count:50" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}); got != "duration:2s,max-total:10" {
		t.Fatalf("unexpected capped duration run target: %s", got)
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	sample := report{TotalScenarios: 2, SuccessScenarios: 2}
	if err := writeJSONReport(path, sample); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}

	if err := writeJSONReport("../escape.json", sample); err == nil {
		t.Fatal("expected error for path outside current directory")
	}
}

func TestRunScenario(t *testing.T) {
	c := newCollector()
	var deleted, fetched string

	client := &fakeOrdersAPI{
		createFn: func(_ context.Context, customerID string, _ time.Time) (string, error) {
			if !strings.HasPrefix(customerID, "load-run-1-1") {
				t.Fatalf("unexpected customer id %q", customerID)
			}
			return "order-1", nil
		},
		getFn: func(_ context.Context, id string) error {
			fetched = id
			return nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	cfg := config{mode: modeCreateGetDelete, timeout: time.Second, customerTag: "load"}
	if err := runScenario(client, cfg, 1, "run-1", c); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}
	if fetched != "order-1" || deleted != "order-1" {
		t.Fatalf("expected get and delete of order-1, got %q/%q", fetched, deleted)
	}

	failing := &fakeOrdersAPI{
		createFn: func(context.Context, string, time.Time) (string, error) {
			return "", &statusError{status: http.StatusServiceUnavailable, code: "pool_exhausted"}
		},
	}
	err := runScenario(failing, cfg, 2, "run-2", c)
	var se *statusError
	if !errors.As(err, &se) || se.status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}

	emptyID := &fakeOrdersAPI{
		createFn: func(context.Context, string, time.Time) (string, error) { return "", nil },
	}
	if err := runScenario(emptyID, cfg, 3, "run-3", c); err == nil || !strings.Contains(err.Error(), "empty order id") {
		t.Fatalf("expected empty id error, got %v", err)
	}

	var pages []int
	lister := &fakeOrdersAPI{
		listFn: func(_ context.Context, page, perPage int) error {
			if perPage != 7 {
				t.Fatalf("unexpected per page %d", perPage)
			}
			pages = append(pages, page)
			return nil
		},
	}
	listCfg := config{mode: modeList, timeout: time.Second, perPage: 7}
	for i := 0; i < 12; i++ {
		if err := runScenario(lister, listCfg, i, "run-4", c); err != nil {
			t.Fatalf("list scenario failed: %v", err)
		}
	}
	if pages[0] != 1 || pages[9] != 10 || pages[10] != 1 {
		t.Fatalf("unexpected page rotation: %v", pages)
	}

	snap, ok := c.snapshot("scenario")
	if !ok || snap.Failed != 2 || snap.Statuses["503"] != 1 {
		t.Fatalf("unexpected scenario stats: %+v", snap)
	}
}

func TestOrdersClient_AgainstAPI(t *testing.T) {
	srv := newOrdersServer(t)
	client := newOrdersClient(srv.URL, srv.Client())
	ctx := context.Background()

	id, err := client.CreateOrder(ctx, "customer-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected order id")
	}
	if err := client.GetOrder(ctx, id); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := client.ListOrders(ctx, 1, 10); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := client.DeleteOrder(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	err = client.GetOrder(ctx, id)
	var se *statusError
	if !errors.As(err, &se) || se.status != http.StatusNotFound || se.code != "not_found" {
		t.Fatalf("expected 404 not_found after delete, got %v", err)
	}

	err = client.ListOrders(ctx, 0, 10)
	if !errors.As(err, &se) || se.status != http.StatusBadRequest {
		t.Fatalf("expected 400 for page 0, got %v", err)
	}
}

func TestPrintReport(t *testing.T) {
	r := report{
		TotalScenarios:   2,
		SuccessScenarios: 2,
		Methods: map[string]methodReport{
			"scenario":    {Calls: 2, Success: 2},
			"CreateOrder": {Calls: 2, Success: 2},
		},
	}

	out := captureStdout(t, func() {
		printReport(r, config{mode: modeCreate, total: 2})
	})

	if !strings.Contains(out, "Load test summary") {
		t.Fatalf("expected summary header, got: %s", out)
	}
	if !strings.Contains(out, "CreateOrder") {
		t.Fatalf("expected method section, got: %s", out)
	}
}

func TestMainSmoke(t *testing.T) {
	srv := newOrdersServer(t)
	outPath := filepath.Join(t.TempDir(), "main-report.json")

	withCLIArgs(t, []string{
		"-addr=" + srv.URL,
		"-mode=create-get-delete",
		"-total=5",
		"-concurrency=2",
		"-timeout=2s",
		"-output=" + outPath,
	}, func() {
		_ = captureStdout(t, main)
	})

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected report file from main: %v", err)
	}
	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 5 || decoded.FailedScenarios != 0 {
		t.Fatalf("unexpected report: %+v", decoded)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	fn()

	_ = w.Close()
	os.Stdout = oldStdout
	data := <-done
	_ = r.Close()

	return string(data)
}
