package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
)

const (
	// MaxPerPage is the Freshdesk API ceiling for the per_page parameter
	MaxPerPage = 100

	defaultTimeout = 30 * time.Second

	// Download timeout is longer since attachments can be large
	downloadTimeout = 5 * time.Minute
)

// Client wraps the Freshdesk REST API with rate limiting and retry logic.
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	baseURL        string
	domain         string
	apiKey         string
	rateLimiter    *RateLimiter
	retryer        *Retryer
	logger         *slog.Logger
}

// ClientConfig configures the Freshdesk client
type ClientConfig struct {
	// Domain is the Freshdesk domain, e.g. "company.freshdesk.com"
	Domain string
	// APIKey authenticates as basic auth username with "X" as the password
	APIKey string
	// BaseURL overrides the API base URL (primarily for tests)
	BaseURL     string
	Timeout     time.Duration
	RetryConfig RetryConfig
	Logger      *slog.Logger
}

// Validate checks if the configuration is valid
func (c ClientConfig) Validate() error {
	if c.Domain == "" && c.BaseURL == "" {
		return fmt.Errorf("freshdesk domain is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("freshdesk API key is required")
	}
	return nil
}

// NewClient creates a new Freshdesk client
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/api/v2", cfg.Domain)
	}

	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = DefaultRetryConfig()
	}

	rateLimiter := NewRateLimiter(logger)
	retryer := NewRetryer(cfg.RetryConfig, rateLimiter, logger)

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
		baseURL:        baseURL,
		domain:         cfg.Domain,
		apiKey:         cfg.APIKey,
		rateLimiter:    rateLimiter,
		retryer:        retryer,
		logger:         logger,
	}, nil
}

// Domain returns the configured Freshdesk domain.
func (c *Client) Domain() string {
	return c.domain
}

// getJSON performs an authenticated GET against the API and decodes the JSON
// response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + "/" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	// Freshdesk basic auth: API key as username, "X" as password
	req.SetBasicAuth(c.apiKey, "X")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("freshdesk request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.updateLimitsFromHeaders(resp)

	if resp.StatusCode != http.StatusOK {
		return c.responseError(resp, http.MethodGet, reqURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode freshdesk response: %w", err)
	}
	return nil
}

func (c *Client) updateLimitsFromHeaders(resp *http.Response) {
	remaining, errR := strconv.Atoi(resp.Header.Get("X-Ratelimit-Remaining"))
	total, errT := strconv.Atoi(resp.Header.Get("X-Ratelimit-Total"))
	if errR == nil && errT == nil {
		c.rateLimiter.UpdateLimits(remaining, total)
	}
}

// responseError turns a non-2xx response into an APIError, attaching the
// Retry-After duration for 429s so the retryer can honor it.
func (c *Client) responseError(resp *http.Response, method, reqURL string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	apiErr := newAPIError(resp.StatusCode, string(body), method, reqURL)

	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			return &retryAfterError{err: apiErr, retryAfter: time.Duration(seconds) * time.Second}
		}
	}
	return apiErr
}

// GetTickets returns one page of tickets in the order the API yields them.
// perPage is capped at the vendor maximum of 100.
func (c *Client) GetTickets(ctx context.Context, page, perPage int) ([]models.Ticket, error) {
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	return DoWithRetry(ctx, c.retryer, fmt.Sprintf("GetTickets(page=%d)", page),
		func(ctx context.Context) ([]models.Ticket, error) {
			var tickets []models.Ticket
			if err := c.getJSON(ctx, "tickets", query, &tickets); err != nil {
				return nil, err
			}
			return tickets, nil
		})
}

// GetAllTickets pages through the ticket listing until a short or empty page
// signals the end. Ordering is whatever the API returned; no client-side sort.
func (c *Client) GetAllTickets(ctx context.Context, perPage int) ([]models.Ticket, error) {
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	var all []models.Ticket
	for page := 1; ; page++ {
		c.logger.Info("Fetching tickets page", "page", page)
		tickets, err := c.GetTickets(ctx, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tickets page %d: %w", page, err)
		}

		all = append(all, tickets...)
		if len(tickets) < perPage {
			break
		}
	}

	c.logger.Info("Retrieved all tickets", "count", len(all))
	return all, nil
}

// GetTicket returns ticket detail including embedded attachment references.
func (c *Client) GetTicket(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	return DoWithRetry(ctx, c.retryer, fmt.Sprintf("GetTicket(%d)", ticketID),
		func(ctx context.Context) (*models.Ticket, error) {
			var ticket models.Ticket
			if err := c.getJSON(ctx, fmt.Sprintf("tickets/%d", ticketID), nil, &ticket); err != nil {
				return nil, err
			}
			for i := range ticket.Attachments {
				ticket.Attachments[i].TicketID = ticket.ID
			}
			return &ticket, nil
		})
}

// GetTicketAttachments returns the attachment references for a ticket.
func (c *Client) GetTicketAttachments(ctx context.Context, ticketID int64) ([]models.Attachment, error) {
	ticket, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket.Attachments, nil
}

// DownloadAttachment streams the attachment at downloadURL into w and returns
// the number of bytes written. The writer is rewound and truncated at the
// start of every attempt so a retry after a mid-stream failure replaces the
// partial bytes instead of appending to them. Freshdesk attachment URLs are
// pre-signed and time-limited; an expired or deleted URL surfaces as
// ErrNotFound.
func (c *Client) DownloadAttachment(ctx context.Context, downloadURL string, w io.WriteSeeker) (int64, error) {
	return DoWithRetry(ctx, c.retryer, "DownloadAttachment",
		func(ctx context.Context) (int64, error) {
			if _, err := w.Seek(0, io.SeekStart); err != nil {
				return 0, fmt.Errorf("failed to rewind download destination: %w", err)
			}
			if t, ok := w.(interface{ Truncate(size int64) error }); ok {
				if err := t.Truncate(0); err != nil {
					return 0, fmt.Errorf("failed to truncate download destination: %w", err)
				}
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
			if err != nil {
				return 0, fmt.Errorf("failed to build download request: %w", err)
			}

			resp, err := c.downloadClient.Do(req)
			if err != nil {
				return 0, fmt.Errorf("attachment download failed: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			switch resp.StatusCode {
			case http.StatusOK:
			case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
				// Pre-signed URLs expire; S3-style hosts answer 403 for
				// expired signatures. All of these mean the attachment is
				// no longer retrievable.
				return 0, &APIError{
					StatusCode: resp.StatusCode,
					Message:    "attachment URL expired or resource deleted",
					URL:        downloadURL,
					Method:     http.MethodGet,
					Err:        ErrNotFound,
				}
			default:
				return 0, c.responseError(resp, http.MethodGet, downloadURL)
			}

			n, err := io.Copy(w, resp.Body)
			if err != nil {
				return n, fmt.Errorf("failed to stream attachment: %w", err)
			}
			return n, nil
		})
}

// ValidateCredentials makes a minimal authenticated request to verify the API
// key before a run starts.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	_, err := c.GetTickets(ctx, 1, 1)
	if err != nil {
		if IsAuthError(err) {
			return fmt.Errorf("invalid freshdesk credentials: %w", err)
		}
		return fmt.Errorf("freshdesk credential check failed: %w", err)
	}
	return nil
}
