package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/puyokura/odysseychat/facts"
	"github.com/puyokura/odysseychat/model"
)

func TestFactsAPIWithClient(t *testing.T) {
	b := newTestBroker(t, CannedResponder{})
	ctx := context.Background()

	saved, err := b.store.UpsertFact(ctx, model.Fact{Username: "alice", FactType: "name", Value: "Alice", Confidence: 0.8})
	require.NoError(t, err)

	c, err := facts.NewClient(b.srv.URL)
	require.NoError(t, err)

	list, err := c.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
	assert.Equal(t, "Alice", list[0].Value)

	require.NoError(t, c.Delete(ctx, saved.ID))
	assert.ErrorIs(t, c.Delete(ctx, saved.ID), facts.ErrRemote)

	list, err = c.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFactsAPIEmptyListCarriesNote(t *testing.T) {
	b := newTestBroker(t, CannedResponder{})

	resp, err := http.Get(b.srv.URL + "/api/facts?username=nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body model.APIResponse[[]model.Fact]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "no facts found or facts table missing", body.Note)
}

func TestFactsAPIRequiresUsername(t *testing.T) {
	b := newTestBroker(t, CannedResponder{})

	resp, err := http.Get(b.srv.URL + "/api/facts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFactsAPIPatch(t *testing.T) {
	b := newTestBroker(t, CannedResponder{})
	saved, err := b.store.UpsertFact(context.Background(), model.Fact{Username: "alice", FactType: "birthday", Value: "May 3"})
	require.NoError(t, err)

	patch := func(id, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPatch, b.srv.URL+"/api/facts/"+id, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := patch(saved.ID, `{"value":"May 5","normalized_value":"0000-05-05"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		OK     bool       `json:"ok"`
		Result model.Fact `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "May 5", body.Result.Value)
	assert.Equal(t, "0000-05-05", body.Result.NormalizedValue)

	assert.Equal(t, http.StatusNotFound, patch("missing", `{"value":"x"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, patch(saved.ID, `not json`).StatusCode)
}

func TestHealth(t *testing.T) {
	b := newTestBroker(t, CannedResponder{})
	b.dial(t, "alice")

	resp, err := http.Get(b.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "canned", body["ai"])
	assert.EqualValues(t, 1, body["active_users"])
}

func TestRespondJSONLogsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := httptest.NewRecorder()

	RespondJSON(rec, zap.New(core), http.StatusOK, map[string]float64{"x": math.Inf(1)})

	assert.Equal(t, http.StatusOK, rec.Code)
	entries := logs.FilterMessage("failed to encode response").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "unsupported value")
}
