package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Client talks to the analysis engine. Plain stage runs go over HTTP JSON;
// the streaming stage is delivered as fragments over NATS core subjects.
// It implements workflow.StageExecutor.
type Client struct {
	baseURL    string
	httpClient *http.Client
	nc         *nats.Conn
	logger     workflow.Logger
}

type runRequest struct {
	CaseID  string `json:"case_id"`
	Stage   string `json:"stage"`
	Refresh bool   `json:"refresh"`
}

type runResponse struct {
	Success bool                          `json:"success"`
	Data    *workflow.StageAnalysisResult `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(baseURL string, nc *nats.Conn, logger workflow.Logger) *Client {
	if logger == nil {
		logger = workflow.NopLogger{}
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// No client-side deadline; the orchestrator's watchdog owns
			// timeout semantics and a late response must still be observable.
			Timeout: 0,
		},
		nc:     nc,
		logger: logger,
	}
}

// RunStage issues one synchronous analysis run.
func (c *Client) RunStage(ctx context.Context, caseID uuid.UUID, stage workflow.Stage, refresh bool) (*workflow.StageAnalysisResult, error) {
	reqBody := runRequest{
		CaseID:  caseID.String(),
		Stage:   string(stage),
		Refresh: refresh,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/cases/%s/stages/%s/run", c.baseURL, caseID, stage)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var runResp runResponse
	if err := json.Unmarshal(bodyBytes, &runResp); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}
	if runResp.Error != nil {
		return nil, fmt.Errorf("engine returned error: %s", runResp.Error.Message)
	}
	if runResp.Data == nil {
		return nil, fmt.Errorf("engine returned empty result for stage %s", stage)
	}

	return runResp.Data, nil
}

// OpenStageStream subscribes to the fragment subject for the run and then
// asks the engine to start streaming. Subscribing first means the earliest
// fragment cannot be lost; any failure to set it up is reported so the caller
// can fall back to the request form.
func (c *Client) OpenStageStream(ctx context.Context, caseID uuid.UUID, stage workflow.Stage, refresh bool) (workflow.StageStream, error) {
	if c.nc == nil {
		return nil, fmt.Errorf("no NATS connection for fragment streaming")
	}

	subject := fmt.Sprintf("engine.stream.%s.%s", caseID, stage)
	stream := newFragmentStream()

	sub, err := c.nc.Subscribe(subject, stream.onMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	stream.sub = sub

	if err := c.startStream(ctx, caseID, stage, refresh); err != nil {
		stream.Close()
		return nil, err
	}

	c.logger.Info("EngineClient", "Fragment stream opened", map[string]interface{}{
		"case_id": caseID, "stage": stage, "subject": subject,
	})
	return stream, nil
}

func (c *Client) startStream(ctx context.Context, caseID uuid.UUID, stage workflow.Stage, refresh bool) error {
	reqBody := runRequest{
		CaseID:  caseID.String(),
		Stage:   string(stage),
		Refresh: refresh,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal stream request: %w", err)
	}

	// The start call is a control request, not the analysis itself; it gets
	// a short deadline of its own.
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/v1/cases/%s/stages/%s/stream", c.baseURL, caseID, stage)
	req, err := http.NewRequestWithContext(startCtx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine stream start failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("engine rejected stream (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
