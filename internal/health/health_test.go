package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/djzlabs/djzspeak/pkg/engine"
	"github.com/djzlabs/djzspeak/pkg/engine/mock"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestHealthz_ContentType(t *testing.T) {
	h := New()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	h := New(
		Checker{Name: "engine", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "presets", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Checks["engine"] != "ok" || body.Checks["presets"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestReadyz_CheckerFails(t *testing.T) {
	h := New(
		Checker{Name: "engine", Check: func(_ context.Context) error {
			return errors.New("executable not found")
		}},
		Checker{Name: "presets", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["engine"] != "fail: executable not found" {
		t.Errorf("engine check = %q", body.Checks["engine"])
	}
	if body.Checks["presets"] != "ok" {
		t.Errorf("presets check = %q, want ok", body.Checks["presets"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRegister_RoutesWork(t *testing.T) {
	h := New(
		Checker{Name: "test", Check: func(_ context.Context) error { return nil }},
	)

	mux := http.NewServeMux()
	h.Register(mux)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	h := New(
		Checker{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestEngineChecker(t *testing.T) {
	healthy := EngineChecker(&mock.Engine{VoicesResult: []string{"en"}})
	if err := healthy.Check(context.Background()); err != nil {
		t.Errorf("healthy engine: %v", err)
	}

	broken := EngineChecker(&mock.Engine{
		VoicesErr: &engine.Error{Engine: "mock", Op: "voices", ExitCode: 1},
	})
	if err := broken.Check(context.Background()); err == nil {
		t.Error("failing engine should be reported")
	}

	empty := EngineChecker(&mock.Engine{})
	if err := empty.Check(context.Background()); err == nil {
		t.Error("an engine with no voices should be reported")
	}
}

func TestRegistryChecker(t *testing.T) {
	reg, err := voice.LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if err := RegistryChecker(reg).Check(context.Background()); err != nil {
		t.Errorf("loaded registry: %v", err)
	}
}

func TestOutputDirChecker(t *testing.T) {
	dir := t.TempDir()
	if err := OutputDirChecker(dir).Check(context.Background()); err != nil {
		t.Errorf("writable dir: %v", err)
	}
	if err := OutputDirChecker(filepath.Join(dir, "missing")).Check(context.Background()); err == nil {
		t.Error("missing dir should be reported")
	}
}
