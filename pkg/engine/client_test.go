package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStageSuccess(t *testing.T) {
	caseID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/cases/"+caseID.String()+"/stages/cohort_analysis/run", r.URL.Path)

		var req runRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, caseID.String(), req.CaseID)
		assert.True(t, req.Refresh)

		json.NewEncoder(w).Encode(runResponse{
			Success: true,
			Data: &workflow.StageAnalysisResult{
				Stage:      workflow.StageCohortAnalysis,
				Reasoning:  "historic cohort supports approval",
				Confidence: 0.82,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	res, err := c.RunStage(context.Background(), caseID, workflow.StageCohortAnalysis, true)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageCohortAnalysis, res.Stage)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
}

func TestRunStageEngineReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"message": "criteria model unavailable"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.RunStage(context.Background(), uuid.New(), workflow.StagePolicyAnalysis, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "criteria model unavailable")
}

func TestRunStageHTTPFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.RunStage(context.Background(), uuid.New(), workflow.StageAIRecommendation, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRunStageEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(runResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.RunStage(context.Background(), uuid.New(), workflow.StageIntake, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty result")
}

func TestRunStageConnectionRefused(t *testing.T) {
	// Closed server: the dial itself must fail, not hang.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.RunStage(context.Background(), uuid.New(), workflow.StageIntake, false)
	require.Error(t, err)
}

func TestOpenStageStreamWithoutNATS(t *testing.T) {
	c := NewClient("http://localhost:0", nil, nil)
	_, err := c.OpenStageStream(context.Background(), uuid.New(), workflow.StagePolicyAnalysis, false)
	require.Error(t, err)
}
