package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/menta2k/region-tensor/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// InferPath is the endpoint the client posts tensors to
const InferPath = "/v1/infer"

// Client calls an inference server over HTTP with JSON tensor bodies
type Client struct {
	baseURL    string
	httpClient *http.Client
	side       int
}

// InferRequest is the request body: data is row-major with the given shape
type InferRequest struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// InferResponse is the response body
type InferResponse struct {
	Shape []int     `json:"shape,omitempty"`
	Data  []float32 `json:"data"`
	Error string    `json:"error,omitempty"`
}

// NewClient creates a client for serverURL. A zero timeout means five minutes.
func NewClient(serverURL string, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", serverURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		side: types.Side,
	}, nil
}

// SetSide sets the edge length of the [1,1,side,side] tensors the client
// sends. Non-positive values restore the default.
func (c *Client) SetSide(side int) {
	if side <= 0 {
		side = types.Side
	}
	c.side = side
}

// Side returns the edge length of the tensors the client sends
func (c *Client) Side() int {
	return c.side
}

// Infer posts the tensor and returns the server's output samples as-is;
// shape validation of the output is the caller's concern.
func (c *Client) Infer(ctx context.Context, in types.Tensor) (types.Tensor, error) {
	if want := c.side * c.side; len(in) != want {
		return nil, fmt.Errorf("%w: input has %d samples, want %d", types.ErrShapeMismatch, len(in), want)
	}

	req := InferRequest{
		Shape: []int{1, 1, c.side, c.side},
		Data:  in,
	}

	body, err := c.sendRequest(ctx, InferPath, req)
	if err != nil {
		return nil, err
	}

	var resp InferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}

	return types.Tensor(resp.Data), nil
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
