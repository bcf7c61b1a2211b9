package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/retry"
)

// Separator terminates every structure in a submitted batch.
const Separator = "$$$$"

const statusPending = "pending"

// Config configures a Client
type Config struct {
	SubmitURL      string
	FetchURL       string
	ModelID        int
	RequestTimeout time.Duration
	PollInterval   time.Duration
	MaxAttempts    int
	Deadline       time.Duration
}

// Client runs batch logP/logS predictions against an asynchronous OCHEM
// style model service: submit a job, poll until it leaves the pending state,
// then read one prediction entry per submitted structure.
type Client struct {
	http      *http.Client
	submitURL string
	fetchURL  string
	modelID   int
	policy    retry.Policy
}

// New creates a Client
func New(cfg Config) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		submitURL: cfg.SubmitURL,
		fetchURL:  cfg.FetchURL,
		modelID:   cfg.ModelID,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Interval:    cfg.PollInterval,
			Deadline:    cfg.Deadline,
		},
	}
}

// Result holds the predicted values, one record per submitted structure, in
// submission order. Entries the service could not predict carry the sentinel.
type Result struct {
	LogP   domain.Delta
	LogS   domain.Delta
	Errors int
	Total  int
}

// Predict submits every structure in smiles as one job and waits for it.
//
// The service answers positionally: entry i belongs to smiles[i]. A missing
// or malformed entry defaults both values to the sentinel and counts as an
// error. Only failing to complete the round trip at all is returned as an error.
func (c *Client) Predict(ctx context.Context, smiles domain.Delta) (*Result, error) {
	if len(smiles) == 0 {
		logger.Info("No new structures to predict")
		return &Result{}, nil
	}

	logger.Info("Getting new predictions", "structures", len(smiles), "model", c.modelID)
	start := time.Now()

	taskID, err := c.submit(ctx, smiles)
	if err != nil {
		return nil, err
	}
	logger.Info("Prediction task submitted", "taskId", taskID)

	out, err := c.poll(ctx, taskID, start)
	if err != nil {
		return nil, err
	}

	res := zip(smiles, out.Predictions)
	logger.Info(fmt.Sprintf("Got errors for %d of %d predictions in total", res.Errors, res.Total))
	return res, nil
}

type submitResponse struct {
	TaskID int64  `json:"taskId"`
	Error  string `json:"error,omitempty"`
}

type fetchResponse struct {
	Status      string            `json:"status"`
	Predictions []json.RawMessage `json:"predictions"`
}

type predictionEntry struct {
	Predictions []struct {
		Value any `json:"value"`
	} `json:"predictions"`
}

func (c *Client) submit(ctx context.Context, smiles domain.Delta) (int64, error) {
	var batch strings.Builder
	for _, r := range smiles {
		batch.WriteString(r.Value)
		batch.WriteString(Separator)
	}
	form := url.Values{
		"modelId": {strconv.Itoa(c.modelID)},
		"mol":     {batch.String()},
	}.Encode()

	return retry.Do(ctx, c.policy, func(ctx context.Context) (int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, strings.NewReader(form))
		if err != nil {
			return 0, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var resp submitResponse
		if err := c.do(req, &resp); err != nil {
			return 0, err
		}
		if resp.TaskID == 0 {
			return 0, fmt.Errorf("submit: %w: no taskId in response %s", domain.ErrMalformed, resp.Error)
		}
		return resp.TaskID, nil
	}, func(attempt int, err error) {
		logger.Warn(fmt.Sprintf("connection failed, trying again in %s", c.policy.Interval), "attempt", attempt, "err", err)
	})
}

func (c *Client) poll(ctx context.Context, taskID int64, start time.Time) (*fetchResponse, error) {
	u, err := url.Parse(c.fetchURL)
	if err != nil {
		return nil, fmt.Errorf("parse fetch url: %w", err)
	}
	q := u.Query()
	q.Set("taskId", strconv.FormatInt(taskID, 10))
	u.RawQuery = q.Encode()

	failures := 0
	for {
		if err := c.policy.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		var out fetchResponse
		if err := c.do(req, &out); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			if failures >= c.policy.MaxAttempts {
				return nil, fmt.Errorf("poll task %d: %w: %d consecutive failures: %w", taskID, domain.ErrTimeout, failures, err)
			}
			logger.Warn(fmt.Sprintf("applying model, trying again in %s", c.policy.Interval), "taskId", taskID, "err", err)
		} else {
			failures = 0
			logger.Info("task status", "taskId", taskID, "status", out.Status)
			if out.Status != statusPending {
				if out.Status != "success" {
					logger.Warn("task finished without success", "taskId", taskID, "status", out.Status)
				}
				return &out, nil
			}
		}

		if c.policy.Expired(start) {
			return nil, fmt.Errorf("poll task %d: %w: deadline %s", taskID, domain.ErrTimeout, c.policy.Deadline)
		}
	}
}

// do sends req and decodes a JSON body into v. Network errors, non-2xx
// statuses and undecodable bodies are all transport failures.
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w: %w", domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("api error (status %d): %w: %s", resp.StatusCode, domain.ErrTransport, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal response: %w: %w", domain.ErrTransport, err)
	}
	return nil
}

func zip(smiles domain.Delta, entries []json.RawMessage) *Result {
	res := &Result{
		LogP:  make(domain.Delta, 0, len(smiles)),
		LogS:  make(domain.Delta, 0, len(smiles)),
		Total: len(smiles),
	}
	if len(entries) > len(smiles) {
		logger.Warn("service returned more predictions than submitted", "submitted", len(smiles), "returned", len(entries))
	}

	for i, r := range smiles {
		logP, logS := domain.Sentinel, domain.Sentinel
		if i < len(entries) {
			if p, s, err := parseEntry(entries[i]); err == nil {
				logP, logS = p, s
			} else {
				logger.Debug("prediction entry rejected", "id", r.ID, "err", err)
				res.Errors++
			}
		} else {
			res.Errors++
		}
		res.LogP = append(res.LogP, domain.Record{ID: r.ID, Value: logP})
		res.LogS = append(res.LogS, domain.Record{ID: r.ID, Value: logS})
	}
	return res
}

func parseEntry(raw json.RawMessage) (string, string, error) {
	var e predictionEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	if len(e.Predictions) < 2 {
		return "", "", fmt.Errorf("%w: %d values, want 2", domain.ErrMalformed, len(e.Predictions))
	}
	logP, ok := formatValue(e.Predictions[0].Value)
	if !ok {
		return "", "", fmt.Errorf("%w: bad logP value %v", domain.ErrMalformed, e.Predictions[0].Value)
	}
	logS, ok := formatValue(e.Predictions[1].Value)
	if !ok {
		return "", "", fmt.Errorf("%w: bad logS value %v", domain.ErrMalformed, e.Predictions[1].Value)
	}
	return logP, logS, nil
}

func formatValue(v any) (string, bool) {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	default:
		return "", false
	}
}
