package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"safirnotify/internal/api"
	"safirnotify/internal/app"
	"safirnotify/internal/config"
	"safirnotify/internal/types"
)

// setTestEnv configures a fully stubbed local deployment.
func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("OPENSTACK_STUB", "true")
	t.Setenv("EMAIL_PROVIDER", "stub")
	t.Setenv("SMTP_LOGIN_ADDR", "noreply@safir.example")
	t.Setenv("MONITOR_PANEL_URL", "https://panel.safir.example/monitor")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("ALARM_QUEUE_URL", "")
}

func buildTestServer(t *testing.T) *api.Server {
	t.Helper()
	setTestEnv(t)

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	components, err := app.Build(context.Background(), cfg, types.NopLogger{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if components.Publisher != nil {
		t.Fatal("expected inline handling without ALARM_QUEUE_URL")
	}

	srv, err := api.NewServer(api.Config{
		Handler:        components.Handler,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthProbes:   components.Probes,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestAlarmWebhook_Local(t *testing.T) {
	srv := buildTestServer(t)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantOutcome string
	}{
		{
			name:        "enter alarm",
			body:        `{"alarm_id":"a-1","current":"alarm","previous":"ok","reason":"cpu high"}`,
			wantStatus:  http.StatusOK,
			wantOutcome: "dispatched",
		},
		{
			name:        "back to ok",
			body:        `{"alarm_id":"a-1","current":"ok","previous":"alarm"}`,
			wantStatus:  http.StatusOK,
			wantOutcome: "dispatched",
		},
		{
			name:        "same state",
			body:        `{"alarm_id":"a-1","current":"ok","previous":"ok"}`,
			wantStatus:  http.StatusOK,
			wantOutcome: "skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/alarms", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp api.AlarmResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", resp.Outcome, tt.wantOutcome)
			}
		})
	}
}

func TestHealth_Local(t *testing.T) {
	srv := buildTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
