package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/service"
	"github.com/makeasinger/fabricator/internal/ship"
	"github.com/makeasinger/fabricator/internal/store"
	"github.com/makeasinger/fabricator/pkg/response"
)

type stubScheduler struct {
	started int
	stopped int
}

func (s *stubScheduler) ScheduleSegmentFabricate(ctx context.Context, delay time.Duration, chainID uuid.UUID) error {
	return nil
}

func (s *stubScheduler) StartChainFabrication(ctx context.Context, chainID uuid.UUID) error {
	s.started++
	return nil
}

func (s *stubScheduler) StopChainFabrication(ctx context.Context, chainID uuid.UUID) error {
	s.stopped++
	return nil
}

type testServer struct {
	app       *fiber.App
	store     *store.Store
	scheduler *stubScheduler
}

// newTestServer wires the chain routes behind a fake auth step that assigns
// the given account to every request.
func newTestServer(t *testing.T, accountID string) *testServer {
	t.Helper()
	return newArchivedTestServer(t, accountID, nil)
}

func newArchivedTestServer(t *testing.T, accountID string, archive service.GraphArchive) *testServer {
	t.Helper()
	st := store.New(nil)
	sched := &stubScheduler{}
	svc := service.NewChainService(st, lifecycle.NewMachine(st, nil), sched, archive, nil)
	h := NewChainHandler(svc, validator.New(), nil)

	app := fiber.New()
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Locals("userId", "operator")
		c.Locals("accountId", accountID)
		return c.Next()
	})
	api.Post("/chains", h.Create)
	api.Get("/chains/:chainId", h.Get)
	api.Post("/chains/:chainId/bindings", h.AddBinding)
	api.Post("/chains/:chainId/state", h.Transition)
	api.Get("/chains/:chainId/segments", h.ListSegments)
	api.Get("/segments/:segmentId", h.SegmentGraph)

	return &testServer{app: app, store: st, scheduler: sched}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func (s *testServer) createChain(t *testing.T) model.Chain {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/chains", map[string]string{
		"name": "lobby",
		"type": "Preview",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", status, body)
	}
	var chain model.Chain
	if err := json.Unmarshal(body, &chain); err != nil {
		t.Fatalf("decode chain: %v", err)
	}
	return chain
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp response.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error: %v (%s)", err, body)
	}
	return resp.Error.Code
}

func TestCreateChainUsesTokenAccount(t *testing.T) {
	account := uuid.New().String()
	s := newTestServer(t, account)
	chain := s.createChain(t)
	if chain.State != model.ChainStateDraft {
		t.Errorf("state = %s, want Draft", chain.State)
	}
	if chain.AccountID.String() != account {
		t.Errorf("account = %s, want %s", chain.AccountID, account)
	}
}

func TestCreateChainValidation(t *testing.T) {
	s := newTestServer(t, "")
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing name", map[string]string{"type": "Preview"}},
		{"unknown type", map[string]string{"name": "x", "type": "Jukebox"}},
		{"bad account", map[string]string{"name": "x", "type": "Preview", "accountId": "nope"}},
		{"stop before start", map[string]string{
			"name":    "x",
			"type":    "Production",
			"startAt": "2026-01-02T00:00:00Z",
			"stopAt":  "2026-01-01T00:00:00Z",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, "/api/chains", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", status, body)
			}
			if code := errorCode(t, body); code != response.CodeValidationError {
				t.Errorf("code = %s", code)
			}
		})
	}
}

func TestCreateChainForOtherAccountIsForbidden(t *testing.T) {
	s := newTestServer(t, uuid.New().String())
	status, _ := s.do(t, http.MethodPost, "/api/chains", map[string]string{
		"name":      "x",
		"type":      "Preview",
		"accountId": uuid.New().String(),
	})
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
}

func TestGetChain(t *testing.T) {
	s := newTestServer(t, "")
	chain := s.createChain(t)

	status, body := s.do(t, http.MethodGet, "/api/chains/"+chain.ID.String(), nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d (%s)", status, body)
	}
	var got model.ChainResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Chain.ID != chain.ID {
		t.Errorf("id = %s, want %s", got.Chain.ID, chain.ID)
	}

	if status, _ := s.do(t, http.MethodGet, "/api/chains/"+uuid.New().String(), nil); status != http.StatusNotFound {
		t.Errorf("unknown chain status = %d, want 404", status)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/chains/not-a-uuid", nil); status != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", status)
	}
}

func TestChainOfAnotherAccountIsHidden(t *testing.T) {
	s := newTestServer(t, uuid.New().String())
	other := model.Chain{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Name:      "other",
		State:     model.ChainStateDraft,
		Type:      model.ChainTypePreview,
		StartAt:   time.Now(),
	}
	if err := s.store.Put(other); err != nil {
		t.Fatalf("put: %v", err)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/chains/"+other.ID.String(), nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestAddBinding(t *testing.T) {
	s := newTestServer(t, "")
	chain := s.createChain(t)
	path := "/api/chains/" + chain.ID.String() + "/bindings"

	status, body := s.do(t, http.MethodPost, path, map[string]string{
		"type":     "Library",
		"targetId": uuid.New().String(),
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d (%s)", status, body)
	}
	if got := s.store.ChainBindings(chain.ID); len(got) != 1 {
		t.Errorf("bindings = %d, want 1", len(got))
	}

	status, _ = s.do(t, http.MethodPost, path, map[string]string{"type": "Library", "targetId": "x"})
	if status != http.StatusBadRequest {
		t.Errorf("bad target status = %d, want 400", status)
	}
}

func TestTransitionChain(t *testing.T) {
	s := newTestServer(t, "")
	chain := s.createChain(t)
	path := "/api/chains/" + chain.ID.String() + "/state"

	status, body := s.do(t, http.MethodPost, path, map[string]string{"state": "Fabricate"})
	if status != http.StatusConflict {
		t.Fatalf("draft to fabricate status = %d, want 409 (%s)", status, body)
	}
	if code := errorCode(t, body); code != response.CodeConflict {
		t.Errorf("code = %s", code)
	}

	for _, state := range []string{"Ready", "Fabricate"} {
		if status, body := s.do(t, http.MethodPost, path, map[string]string{"state": state}); status != http.StatusOK {
			t.Fatalf("to %s status = %d (%s)", state, status, body)
		}
	}
	if s.scheduler.started != 1 {
		t.Errorf("started = %d, want 1", s.scheduler.started)
	}

	if status, _ := s.do(t, http.MethodPost, path, map[string]string{"state": "Paused"}); status != http.StatusBadRequest {
		t.Errorf("unknown state status = %d, want 400", status)
	}
}

func TestEraseChain(t *testing.T) {
	s := newTestServer(t, "")
	chain := s.createChain(t)

	status, _ := s.do(t, http.MethodPost, "/api/chains/"+chain.ID.String()+"/state", map[string]string{"state": "Erase"})
	if status != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", status)
	}
	if _, ok := s.store.Chain(chain.ID); ok {
		t.Error("chain still stored after erase")
	}

	status, _ = s.do(t, http.MethodPost, "/api/chains/"+chain.ID.String()+"/bindings", map[string]string{
		"type":     "Library",
		"targetId": uuid.New().String(),
	})
	if status != http.StatusNotFound {
		t.Errorf("binding on erased chain status = %d, want 404", status)
	}
}

func TestListSegmentsAndGraph(t *testing.T) {
	s := newTestServer(t, "")
	chain := s.createChain(t)
	seg := model.Segment{
		ID:      uuid.New(),
		ChainID: chain.ID,
		State:   model.SegmentStatePlanned,
		Type:    model.SegmentTypePending,
		BeginAt: chain.StartAt,
		EndAt:   chain.StartAt,
	}
	if err := s.store.Put(seg); err != nil {
		t.Fatalf("put segment: %v", err)
	}

	status, body := s.do(t, http.MethodGet, "/api/chains/"+chain.ID.String()+"/segments", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d (%s)", status, body)
	}
	var list struct {
		Segments []model.SegmentSummary `json:"segments"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Segments) != 1 || list.Segments[0].ID != seg.ID {
		t.Errorf("segments = %+v", list.Segments)
	}

	status, body = s.do(t, http.MethodGet, "/api/segments/"+seg.ID.String(), nil)
	if status != http.StatusOK {
		t.Fatalf("graph status = %d (%s)", status, body)
	}
	var graph store.Graph
	if err := json.Unmarshal(body, &graph); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if graph.Segment.ID != seg.ID {
		t.Errorf("graph segment = %s, want %s", graph.Segment.ID, seg.ID)
	}

	if status, _ := s.do(t, http.MethodGet, "/api/segments/"+uuid.New().String(), nil); status != http.StatusNotFound {
		t.Errorf("unknown segment status = %d, want 404", status)
	}
}

type expiredArchive struct{}

func (expiredArchive) Load(ctx context.Context, seg model.Segment) (store.Graph, error) {
	return store.Graph{}, ship.ErrNotShipped
}

func (expiredArchive) Link(ctx context.Context, seg model.Segment) (string, error) {
	return "", nil
}

func (expiredArchive) Forget(ctx context.Context, chainID uuid.UUID, segments []model.Segment) error {
	return nil
}

func TestExpiredSegmentGraphIsNotFound(t *testing.T) {
	s := newArchivedTestServer(t, "", expiredArchive{})
	chain := s.createChain(t)
	seg := model.Segment{
		ID:      uuid.New(),
		ChainID: chain.ID,
		State:   model.SegmentStateDubbed,
		Type:    model.SegmentTypeInitial,
		BeginAt: chain.StartAt,
		EndAt:   chain.StartAt,
	}
	if err := s.store.Put(seg); err != nil {
		t.Fatalf("put segment: %v", err)
	}

	status, body := s.do(t, http.MethodGet, "/api/segments/"+seg.ID.String(), nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (%s)", status, body)
	}
	if code := errorCode(t, body); code != response.CodeNotFound {
		t.Errorf("code = %s", code)
	}
}
