package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinic-call-queue/internal/calllog"
	"clinic-call-queue/internal/models"
	"clinic-call-queue/internal/queue"
	"clinic-call-queue/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type failingStore struct {
	err error
}

func (f *failingStore) Load(context.Context) ([]byte, int64, error) {
	return nil, 0, nil
}

func (f *failingStore) Save(context.Context, []byte, int64) (int64, error) {
	return 0, f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, store calllog.SlotStore, names ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	patients := make([]models.Patient, len(names))
	for i, n := range names {
		patients[i] = models.Patient{Name: n, ServiceType: "Consulta", Priority: models.PriorityNormal}
	}
	q := queue.NewStore()
	if err := q.Initialize(patients); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	queueService := service.NewQueueService(q, calllog.New(store, calllog.StrategySingleWriter), nil, zerolog.Nop())
	displayService := service.NewDisplayService(calllog.New(store, calllog.StrategySingleWriter))

	r := gin.New()
	api := r.Group("/api/v1")
	NewQueueHandler(queueService).RegisterRoutes(api.Group("/queue"))
	NewDisplayHandler(displayService, nil).RegisterRoutes(api.Group("/display"))
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestQueueHandler_CallAndRevert(t *testing.T) {
	r := setupRouter(t, calllog.NewMemoryStore(), "Ana", "Bruno")

	code, env := do(t, r, http.MethodPost, "/api/v1/queue/call-next", `{"room":"101"}`)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("call-next: expected 200, got %d %+v", code, env)
	}
	var called struct {
		Called  bool              `json:"called"`
		Patient models.Patient    `json:"patient"`
		Record  models.CallRecord `json:"record"`
	}
	if err := json.Unmarshal(env.Data, &called); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !called.Called || called.Patient.Name != "Ana" || called.Record.Room != "101" {
		t.Fatalf("unexpected call result: %+v", called)
	}

	code, env = do(t, r, http.MethodGet, "/api/v1/display/calls/current", "")
	if code != http.StatusOK {
		t.Fatalf("current: expected 200, got %d", code)
	}
	var current models.CallRecord
	_ = json.Unmarshal(env.Data, &current)
	if current.PatientName != "Ana" {
		t.Fatalf("expected Ana on display, got %+v", current)
	}

	code, _ = do(t, r, http.MethodPost, "/api/v1/queue/patients/Ana/revert", "")
	if code != http.StatusOK {
		t.Fatalf("revert: expected 200, got %d", code)
	}

	code, _ = do(t, r, http.MethodGet, "/api/v1/display/calls/current", "")
	if code != http.StatusNotFound {
		t.Fatalf("current after revert: expected 404, got %d", code)
	}

	code, env = do(t, r, http.MethodGet, "/api/v1/queue", "")
	var snap service.QueueSnapshot
	_ = json.Unmarshal(env.Data, &snap)
	if code != http.StatusOK || snap.WaitingCount != 2 || !snap.CanCallNext {
		t.Fatalf("expected both waiting, got %d %+v", code, snap)
	}
}

func TestQueueHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		store      calllog.SlotStore
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing room", calllog.NewMemoryStore(), http.MethodPost, "/api/v1/queue/patients/Ana/call", `{"room":""}`, http.StatusUnprocessableEntity, "missing_room"},
		{"empty body", calllog.NewMemoryStore(), http.MethodPost, "/api/v1/queue/call-next", "", http.StatusUnprocessableEntity, "missing_room"},
		{"unknown patient", calllog.NewMemoryStore(), http.MethodPost, "/api/v1/queue/patients/Zeca/call", `{"room":"1"}`, http.StatusNotFound, "patient_not_found"},
		{"revert waiting", calllog.NewMemoryStore(), http.MethodPost, "/api/v1/queue/patients/Ana/revert", "", http.StatusConflict, "invalid_state"},
		{"store down", &failingStore{err: errors.New("down")}, http.MethodPost, "/api/v1/queue/patients/Ana/call", `{"room":"1"}`, http.StatusServiceUnavailable, "persistence_error"},
		{"lost race", &failingStore{err: calllog.ErrVersionConflict}, http.MethodPost, "/api/v1/queue/patients/Ana/call", `{"room":"1"}`, http.StatusConflict, "call_log_conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(t, tt.store, "Ana")
			code, env := do(t, r, tt.method, tt.path, tt.body)
			if code != tt.wantStatus || env.Code != tt.wantCode || env.Success {
				t.Fatalf("expected %d %q, got %d %+v", tt.wantStatus, tt.wantCode, code, env)
			}
		})
	}
}

func TestQueueHandler_InvalidBody(t *testing.T) {
	r := setupRouter(t, calllog.NewMemoryStore(), "Ana")
	code, _ := do(t, r, http.MethodPost, "/api/v1/queue/call-next", `{"room":`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestQueueHandler_CallNextEmptyQueue(t *testing.T) {
	r := setupRouter(t, calllog.NewMemoryStore())
	code, env := do(t, r, http.MethodPost, "/api/v1/queue/call-next", `{"room":"1"}`)

	var body struct {
		Called bool `json:"called"`
	}
	_ = json.Unmarshal(env.Data, &body)
	if code != http.StatusOK || body.Called {
		t.Fatalf("expected 200 with called=false, got %d %s", code, env.Data)
	}
}

func TestQueueHandler_ActivityDisabled(t *testing.T) {
	r := setupRouter(t, calllog.NewMemoryStore(), "Ana")
	code, _ := do(t, r, http.MethodGet, "/api/v1/queue/activity", "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestDisplayHandler_GetCalls(t *testing.T) {
	r := setupRouter(t, calllog.NewMemoryStore(), "Ana", "Bruno", "Carla")
	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		if code, env := do(t, r, http.MethodPost, "/api/v1/queue/patients/"+name+"/call", `{"room":"5"}`); code != http.StatusOK {
			t.Fatalf("call %s: %d %+v", name, code, env)
		}
	}

	code, env := do(t, r, http.MethodGet, "/api/v1/display/calls?limit=2", "")
	var body struct {
		Calls []models.CallRecord `json:"calls"`
		Count int                 `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &body)
	if code != http.StatusOK || body.Count != 2 || body.Calls[0].PatientName != "Carla" {
		t.Fatalf("expected the two latest calls, got %d %+v", code, body)
	}

	code, _ = do(t, r, http.MethodGet, "/api/v1/display/calls?limit=abc", "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", code)
	}
}
