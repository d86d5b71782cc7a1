package sampler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HistogramEntry counts how often one action type occurred in a session.
// TypeIndex is the zero-based dense taxonomy index.
type HistogramEntry struct {
	TypeIndex int `json:"type"`
	Count     int `json:"count"`
}

// UserSessions is one user's ordered-by-time session histograms.
type UserSessions struct {
	UID      string             `json:"uid"`
	Sessions [][]HistogramEntry `json:"sessions"`
}

// Request is the full input to one sampler fit.
type Request struct {
	Users               []UserSessions `json:"users"`
	ActionTypes         int            `json:"action_types"`
	Roles               int            `json:"roles"`
	MaxIterations       int            `json:"max_iterations"`
	ProportionSmoothing float64        `json:"proportion_smoothing"`
	RoleSmoothing       float64        `json:"role_smoothing"`
	Seed                uint64         `json:"seed"`
}

// UserProportions is the sampler's per-role attribution for one user,
// indexed by role position.
type UserProportions struct {
	UID     string    `json:"uid"`
	Weights []float64 `json:"weights"`
}

// Result is the sampler's output. Assignments is indexed by global
// session position in the request's user order.
type Result struct {
	RoleWeights   [][]float64       `json:"role_weights"` // [role][action type]
	Proportions   []UserProportions `json:"proportions"`
	Assignments   []int             `json:"assignments"`
	LogLikelihood float64           `json:"log_likelihood"`
}

// Client talks to the role-inference sampler service. The sampler is an
// opaque numerical engine; one Fit call blocks until it converges or
// hits its iteration cap.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Fits over large courses run for minutes.
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Fit submits session histograms and hyperparameters and returns the
// inferred roles, proportions and per-session assignments.
func (c *Client) Fit(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/fit", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sampler call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("sampler error %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("sampler error %d: %s", resp.StatusCode, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.RoleWeights) != req.Roles {
		return nil, fmt.Errorf("sampler returned %d roles, expected %d", len(result.RoleWeights), req.Roles)
	}
	return &result, nil
}
