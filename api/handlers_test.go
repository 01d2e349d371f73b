package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/api"
	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/programs"
	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var evalDate = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

// unavailableClient stands in for the rules service; the tests below only
// exercise local-rule programs.
type unavailableClient struct{}

func (unavailableClient) Calculate(_ context.Context, req *rules.BatchRequest) *rules.BatchResponse {
	return rules.NewUnavailable(req.Key, req.Screen.ID)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry, err := programs.DefaultCatalog(fpl.Year2023())
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, unavailableClient{},
		engine.NewAlreadyHasFilter(programs.DefaultMapping()),
		engine.WithClock(func() time.Time { return evalDate }),
	)

	handler := api.NewHandler(store, orch, registry, nil)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

const screenBody = `{
	"id": "screen-1",
	"state": "co",
	"county": "Denver County",
	"zip_code": "80203",
	"members": [
		{
			"id": "m1", "relationship": "head", "age": 29,
			"income_streams": [
				{"type": "wages", "amount": 1200, "frequency": "monthly"}
			]
		},
		{"id": "m2", "relationship": "child", "age": 4}
	]
}`

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// SCREEN ENDPOINTS
// =============================================================================

func TestCreateAndGetScreen(t *testing.T) {
	srv := newServer(t)

	// WHEN: Submitting a screen
	resp := postJSON(t, srv.URL+"/api/screens", screenBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[map[string]any](t, resp)
	assert.Equal(t, "screen-1", created["id"])
	assert.Equal(t, false, created["frozen"])

	// THEN: It reads back with members intact
	getResp, err := http.Get(srv.URL + "/api/screens/screen-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	got := decode[map[string]any](t, getResp)
	assert.Equal(t, "co", got["state"])
	assert.Len(t, got["members"], 2)
}

func TestCreateScreen_Validation(t *testing.T) {
	srv := newServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing state", `{"members": [{"id": "m1", "relationship": "head", "age": 30}]}`},
		{"no members", `{"state": "co", "members": []}`},
		{"bad json", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/screens", tc.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetScreen_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/screens/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateScreen_GeneratesID(t *testing.T) {
	srv := newServer(t)

	body := `{"state": "co", "members": [{"id": "m1", "relationship": "head", "age": 30}]}`
	resp := postJSON(t, srv.URL+"/api/screens", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[map[string]any](t, resp)
	assert.NotEmpty(t, created["id"])
}

// =============================================================================
// EVALUATION ENDPOINT
// =============================================================================

func TestEvaluate_RecordsSnapshotAndFreezes(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/api/screens", screenBody).Body.Close()

	// WHEN: Evaluating one program
	resp := postJSON(t, srv.URL+"/api/screens/screen-1/eligibility", `{"programs": ["snap"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	type resultDTO struct {
		Program  string `json:"program"`
		Eligible bool   `json:"eligible"`
		Value    string `json:"value"`
	}
	type evalDTO struct {
		SnapshotID string      `json:"snapshot_id"`
		ScreenID   string      `json:"screen_id"`
		Results    []resultDTO `json:"results"`
	}
	eval := decode[evalDTO](t, resp)

	assert.NotEmpty(t, eval.SnapshotID)
	assert.Equal(t, "screen-1", eval.ScreenID)
	require.Len(t, eval.Results, 1)
	assert.Equal(t, "snap", eval.Results[0].Program)
	assert.True(t, eval.Results[0].Eligible)
	assert.Equal(t, "516.00", eval.Results[0].Value)

	// THEN: The screen is frozen and rejects resubmission
	getResp, err := http.Get(srv.URL + "/api/screens/screen-1")
	require.NoError(t, err)
	got := decode[map[string]any](t, getResp)
	assert.Equal(t, true, got["frozen"])

	conflict := postJSON(t, srv.URL+"/api/screens", screenBody)
	defer conflict.Body.Close()
	assert.Equal(t, http.StatusConflict, conflict.StatusCode)

	// And the run appears in the snapshot listing.
	snapResp, err := http.Get(srv.URL + "/api/screens/screen-1/snapshots")
	require.NoError(t, err)
	snaps := decode[[]evalDTO](t, snapResp)
	require.Len(t, snaps, 1)
	assert.Equal(t, eval.SnapshotID, snaps[0].SnapshotID)
}

func TestEvaluate_EmptyBodyMeansEveryProgram(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/api/screens", screenBody).Body.Close()

	resp := postJSON(t, srv.URL+"/api/screens/screen-1/eligibility", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	eval := decode[map[string]any](t, resp)
	results := eval["results"].([]any)
	assert.Len(t, results, 9, "one result per registered program")
}

func TestEvaluate_UnknownScreen(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/screens/nope/eligibility", `{"programs": ["snap"]}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PROGRAM AND VALIDATION ENDPOINTS
// =============================================================================

func TestListPrograms(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/programs")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[[]map[string]any](t, resp)
	require.Len(t, list, 9)
	assert.Equal(t, "snap", list[0]["id"])
	assert.Equal(t, "Supplemental Nutrition Assistance Program", list[0]["name"])
}

func TestRunValidation(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/validate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	type validationDTO struct {
		Fixtures   int   `json:"fixtures"`
		Mismatches []any `json:"mismatches"`
		Passed     bool  `json:"passed"`
	}
	v := decode[validationDTO](t, resp)
	assert.Equal(t, 5, v.Fixtures)
	assert.True(t, v.Passed, "mismatches: %v", v.Mismatches)
}

func TestResetAndHealth(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/api/screens", screenBody).Body.Close()

	resp := postJSON(t, srv.URL+"/api/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	listResp, err := http.Get(srv.URL + "/api/screens")
	require.NoError(t, err)
	screens := decode[[]any](t, listResp)
	assert.Empty(t, screens)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
