package e2e

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/store"
)

func TestHealth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}

func TestChains_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/chains", `{"name":"x","type":"Preview"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestCatalogSummary(t *testing.T) {
	ta := setupApp(t)

	resp := ta.doAuthRequest(t, http.MethodGet, "/api/catalog", "")
	assertStatus(t, resp, http.StatusOK)

	var summary map[string]int
	decode(t, resp, &summary)
	if summary["programs"] != len(ta.fixture.Content.Programs) {
		t.Errorf("expected %d programs, got %d", len(ta.fixture.Content.Programs), summary["programs"])
	}
}

func TestChainLifecycle(t *testing.T) {
	ta := setupApp(t)

	// Create
	resp := ta.doAuthRequest(t, http.MethodPost, "/api/chains", `{"name":"lobby","type":"Preview"}`)
	assertStatus(t, resp, http.StatusCreated)
	var chain model.Chain
	decode(t, resp, &chain)
	if chain.AccountID.String() != ta.accountID {
		t.Errorf("expected account %s, got %s", ta.accountID, chain.AccountID)
	}
	chainPath := "/api/chains/" + chain.ID.String()
	t.Cleanup(func() {
		ta.doAuthRequest(t, http.MethodPost, chainPath+"/state", `{"state":"Erase"}`).Body.Close()
	})

	// Bind the test library
	resp = ta.doAuthRequest(t, http.MethodPost, chainPath+"/bindings",
		fmt.Sprintf(`{"type":"Library","targetId":"%s"}`, ta.fixture.Builder.LibraryID()))
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	// Start fabrication
	for _, state := range []string{"Ready", "Fabricate"} {
		resp = ta.doAuthRequest(t, http.MethodPost, chainPath+"/state", fmt.Sprintf(`{"state":"%s"}`, state))
		assertStatus(t, resp, http.StatusOK)
		readBody(t, resp)
	}

	for i := 0; i < 2; i++ {
		if err := ta.worker.Fabricate(context.Background(), chain.ID); err != nil {
			t.Fatalf("fabricate %d: %v", i, err)
		}
	}

	// Both segments dubbed in order
	resp = ta.doAuthRequest(t, http.MethodGet, chainPath+"/segments", "")
	assertStatus(t, resp, http.StatusOK)
	var list struct {
		Segments []model.SegmentSummary `json:"segments"`
	}
	decode(t, resp, &list)
	if len(list.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(list.Segments))
	}
	for i, seg := range list.Segments {
		if seg.Offset != i || seg.State != model.SegmentStateDubbed {
			t.Errorf("unexpected segment %d: %+v", i, seg)
		}
	}

	// The first segment's partition was evicted; its graph comes back from redis
	resp = ta.doAuthRequest(t, http.MethodGet, "/api/segments/"+list.Segments[0].ID.String(), "")
	assertStatus(t, resp, http.StatusOK)
	var graph store.Graph
	decode(t, resp, &graph)
	if graph.Segment.ID != list.Segments[0].ID {
		t.Errorf("expected segment %s, got %s", list.Segments[0].ID, graph.Segment.ID)
	}
	if len(graph.Choices) == 0 {
		t.Error("expected archived graph to carry its choices")
	}

	// Complete stops fabrication and closes the chain to new bindings
	resp = ta.doAuthRequest(t, http.MethodPost, chainPath+"/state", `{"state":"Complete"}`)
	assertStatus(t, resp, http.StatusOK)
	readBody(t, resp)

	resp = ta.doAuthRequest(t, http.MethodPost, chainPath+"/bindings",
		fmt.Sprintf(`{"type":"Library","targetId":"%s"}`, uuid.New()))
	assertStatus(t, resp, http.StatusConflict)
	readBody(t, resp)
}

func TestChain_IllegalTransition(t *testing.T) {
	ta := setupApp(t)

	resp := ta.doAuthRequest(t, http.MethodPost, "/api/chains", `{"name":"lobby","type":"Production"}`)
	assertStatus(t, resp, http.StatusCreated)
	var chain model.Chain
	decode(t, resp, &chain)

	resp = ta.doAuthRequest(t, http.MethodPost, "/api/chains/"+chain.ID.String()+"/state", `{"state":"Complete"}`)
	assertStatus(t, resp, http.StatusConflict)
	readBody(t, resp)

	resp = ta.doAuthRequest(t, http.MethodPost, "/api/chains/"+chain.ID.String()+"/state", `{"state":"Erase"}`)
	assertStatus(t, resp, http.StatusNoContent)
	readBody(t, resp)
}
