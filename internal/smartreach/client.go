package smartreach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hyredlabs/outreach-console/internal/leads"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

var tracer = otel.Tracer("outreach-console/smartreach")

const (
	defaultBaseURL   = "https://server.smartreach.io/api/v1"
	defaultUserAgent = "outreach-console/0.1"
)

// Config controls how the smartreach client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client wraps the smartreach REST API. Authentication is an api_key query
// parameter on every request, which is how the platform does it.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("smartreach: API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// ListCampaigns returns all campaigns on the account.
func (c *Client) ListCampaigns(ctx context.Context) ([]CampaignSummary, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/campaigns", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []CampaignSummary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smartreach: decode campaigns: %w", err)
	}
	return out, nil
}

// CreateCampaign creates an upstream campaign and returns its id.
func (c *Client) CreateCampaign(ctx context.Context, name string) (*CampaignSummary, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("smartreach: campaign name required")
	}
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("smartreach: marshal campaign: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/campaigns/create", nil, body)
	if err != nil {
		return nil, err
	}
	var out CampaignSummary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smartreach: decode campaign: %w", err)
	}
	return &out, nil
}

// GetCampaign fetches one campaign.
func (c *Client) GetCampaign(ctx context.Context, id int64) (*CampaignSummary, error) {
	data, err := c.invoke(ctx, http.MethodGet, campaignPath(id, ""), nil, nil)
	if err != nil {
		return nil, err
	}
	var out CampaignSummary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smartreach: decode campaign: %w", err)
	}
	return &out, nil
}

// StartCampaign begins sending upstream.
func (c *Client) StartCampaign(ctx context.Context, id int64) error {
	return c.setCampaignStatus(ctx, id, "START")
}

// PauseCampaign pauses sending upstream.
func (c *Client) PauseCampaign(ctx context.Context, id int64) error {
	return c.setCampaignStatus(ctx, id, "PAUSED")
}

func (c *Client) setCampaignStatus(ctx context.Context, id int64, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("smartreach: marshal status: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, campaignPath(id, "/status"), nil, body)
	return err
}

// ListEmailAccounts pages through the account's sending mailboxes.
func (c *Client) ListEmailAccounts(ctx context.Context, offset, limit int) ([]EmailAccount, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	data, err := c.invoke(ctx, http.MethodGet, "/email-accounts", q, nil)
	if err != nil {
		return nil, err
	}
	var out []EmailAccount
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smartreach: decode email accounts: %w", err)
	}
	return out, nil
}

// UpdateEmailAccount changes sending limits or warmup for a mailbox.
func (c *Client) UpdateEmailAccount(ctx context.Context, accountID int64, update EmailAccountUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("smartreach: marshal account update: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, fmt.Sprintf("/email-accounts/%d", accountID), nil, body)
	return err
}

// AssignEmailAccounts attaches mailboxes to a campaign.
func (c *Client) AssignEmailAccounts(ctx context.Context, campaignID int64, accountIDs []int64) error {
	if len(accountIDs) == 0 {
		return errors.New("smartreach: at least one email account required")
	}
	body, err := json.Marshal(map[string]any{"email_account_ids": accountIDs})
	if err != nil {
		return fmt.Errorf("smartreach: marshal account ids: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, campaignPath(campaignID, "/email-accounts"), nil, body)
	return err
}

// SaveSequence replaces the campaign's upstream drip sequence.
func (c *Client) SaveSequence(ctx context.Context, campaignID int64, steps []SequenceStepPayload) error {
	if len(steps) == 0 {
		return errors.New("smartreach: sequence needs at least one step")
	}
	body, err := json.Marshal(map[string]any{"sequences": steps})
	if err != nil {
		return fmt.Errorf("smartreach: marshal sequence: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, campaignPath(campaignID, "/sequences"), nil, body)
	return err
}

// SaveSchedule sets the campaign's sending window.
func (c *Client) SaveSchedule(ctx context.Context, campaignID int64, schedule Schedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("smartreach: marshal schedule: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, campaignPath(campaignID, "/schedule"), nil, body)
	return err
}

// GetSchedule fetches the campaign's sending window.
func (c *Client) GetSchedule(ctx context.Context, campaignID int64) (*Schedule, error) {
	data, err := c.invoke(ctx, http.MethodGet, campaignPath(campaignID, "/schedule"), nil, nil)
	if err != nil {
		return nil, err
	}
	var out Schedule
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smartreach: decode schedule: %w", err)
	}
	return &out, nil
}

// UploadLeads pushes lead records into an upstream campaign.
func (c *Client) UploadLeads(ctx context.Context, campaignID int64, leadList []map[string]string) error {
	if len(leadList) == 0 {
		return errors.New("smartreach: lead list is empty")
	}
	body, err := json.Marshal(map[string]any{
		"lead_list": leadList,
		"settings": UploadSettings{
			IgnoreGlobalBlockList: true,
			IgnoreUnsubscribeList: true,
		},
	})
	if err != nil {
		return fmt.Errorf("smartreach: marshal lead list: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, campaignPath(campaignID, "/leads"), nil, body)
	return err
}

// FetchLeads pulls a page of raw lead records for a campaign. The response
// shape varies by endpoint version, so decoding goes through the envelope
// scanner.
func (c *Client) FetchLeads(ctx context.Context, campaignID int64, offset, limit int) ([]leads.RawRecord, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	data, err := c.invoke(ctx, http.MethodGet, campaignPath(campaignID, "/leads"), q, nil)
	if err != nil {
		return nil, err
	}
	records, err := leads.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("smartreach: decode leads: %w", err)
	}
	return records, nil
}

// FetchStats pulls the campaign's delivery report.
func (c *Client) FetchStats(ctx context.Context, campaignID int64) (*CampaignStats, error) {
	data, err := c.invoke(ctx, http.MethodGet, campaignPath(campaignID, "/analytics"), nil, nil)
	if err != nil {
		return nil, err
	}
	var out CampaignStats
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smartreach: decode stats: %w", err)
	}
	if out.CampaignID == 0 {
		out.CampaignID = campaignID
	}
	return &out, nil
}

// MessageHistory fetches a lead's full conversation thread.
func (c *Client) MessageHistory(ctx context.Context, campaignID int64, leadID string) ([]Message, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, errors.New("smartreach: lead id required")
	}
	path := campaignPath(campaignID, "/leads/"+url.PathEscape(leadID)+"/message-history")
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		History []Message `json:"history"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("smartreach: decode message history: %w", err)
	}
	return wrapper.History, nil
}

// ReplyToThread posts a reply into a lead's existing thread.
func (c *Client) ReplyToThread(ctx context.Context, campaignID int64, req ReplyRequest) error {
	if strings.TrimSpace(req.EmailBody) == "" {
		return errors.New("smartreach: reply body required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("smartreach: marshal reply: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, campaignPath(campaignID, "/reply-email-thread"), nil, body)
	return err
}

func campaignPath(id int64, suffix string) string {
	return fmt.Sprintf("/campaigns/%d%s", id, suffix)
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "smartreach.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("smartreach.path", path),
	)

	fullURL := c.buildURL(path, query)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("smartreach: build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("smartreach: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("smartreach: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		span.SetStatus(codes.Error, apiErr.Error())
		return nil, apiErr
	}
	if lastErr != nil {
		span.SetStatus(codes.Error, lastErr.Error())
		return nil, lastErr
	}
	return nil, errors.New("smartreach: request failed without response")
}

func (c *Client) buildURL(path string, query url.Values) string {
	trimmedPath := "/" + strings.TrimLeft(path, "/")
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	return c.baseURL + trimmedPath + "?" + query.Encode()
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	c.logger.Warn("smartreach retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

type apiError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	Detail     string `json:"error,omitempty"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("smartreach: %s (status=%d)", e.Message, e.StatusCode)
	}
	if e.Detail != "" {
		return fmt.Sprintf("smartreach: %s (status=%d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("smartreach: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &apiError{StatusCode: status, Detail: string(body)}
	}
	parsed.StatusCode = status
	return &parsed
}
