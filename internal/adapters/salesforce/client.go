package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/domain/model"
	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// ClientConfig holds the Tooling API connection parameters. APIVersion is
// per-client configuration so instances can target different protocol
// versions independently.
type ClientConfig struct {
	InstanceURL string
	APIVersion  string
	Credentials ports.CredentialSource
	HTTPClient  *http.Client // Optional, defaults to a 30s-timeout client
	Logger      *slog.Logger
}

// Client issues Tooling API requests: the queue-item status query and the
// asynchronous test start action.
type Client struct {
	instanceURL string
	apiVersion  string
	credentials ports.CredentialSource
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.QueryClient = (*Client)(nil)

// NewClient creates a Tooling API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.InstanceURL == "" {
		return nil, errors.New("instance URL is required")
	}
	if cfg.APIVersion == "" {
		return nil, errors.New("API version is required")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("credential source is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		instanceURL: strings.TrimSuffix(cfg.InstanceURL, "/"),
		apiVersion:  cfg.APIVersion,
		credentials: cfg.Credentials,
		httpClient:  httpClient,
		logger:      logger.With("component", "salesforce"),
	}, nil
}

// queryResponse is the Tooling API query reply envelope.
type queryResponse struct {
	TotalSize int                     `json:"totalSize"`
	Done      bool                    `json:"done"`
	Records   []model.QueueItemRecord `json:"records"`
}

// QueryTestQueueItems returns every ApexTestQueueItem whose parent job id
// matches runID. An empty slice means the backend does not know the run.
func (c *Client) QueryTestQueueItems(ctx context.Context, runID model.RunID) ([]model.QueueItemRecord, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Status, ApexClassId, TestRunResultId, ExtendedStatus FROM ApexTestQueueItem WHERE ParentJobId = '%s'",
		runID)

	endpoint := fmt.Sprintf("%s/services/data/v%s/tooling/query?q=%s",
		c.instanceURL, c.apiVersion, url.QueryEscape(soql))

	var resp queryResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// StartRun issues runTestsAsynchronous for the given class ids and returns
// the run id of the enqueued job. Wrap it in a ports.StartAction closure when
// subscribing.
func (c *Client) StartRun(ctx context.Context, classIDs []string) (model.RunID, error) {
	if len(classIDs) == 0 {
		return "", errors.New("at least one test class id is required")
	}

	endpoint := fmt.Sprintf("%s/services/data/v%s/tooling/runTestsAsynchronous",
		c.instanceURL, c.apiVersion)

	body := map[string]string{"classids": strings.Join(classIDs, ",")}

	var runID string
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &runID); err != nil {
		return "", err
	}

	id := model.RunID(runID)
	if !id.Valid() {
		return "", fmt.Errorf("runTestsAsynchronous returned malformed run id %q", runID)
	}
	c.logger.InfoContext(ctx, "enqueued asynchronous test run",
		"run_id", runID, "classes", len(classIDs))
	return id, nil
}

// doJSON performs one authenticated request and decodes the JSON reply into
// out.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	token, err := c.credentials.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh credential: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("marshal request body: %w", merr)
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("tooling API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
