package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"attendance/internal/domain/attendance"
	"attendance/internal/platform/config"
)

const (
	EndpointPerson       = "person"
	EndpointTransactions = "transactions"
	EndpointSummary      = "first_in_last_out"

	maxBodyBytes = 8 << 20
)

// Recorder receives one call per device request.
type Recorder interface {
	RecordCall(endpoint string, status int, duration time.Duration, err error)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	loc        *time.Location
	recorder   Recorder
}

func NewClient(baseURL, token string, timeout time.Duration, loc *time.Location, recorder Recorder) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		loc:        loc,
		recorder:   recorder,
	}
}

func FromConfig(cfg config.Config, recorder Recorder) (*Client, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.DeviceBaseURL, cfg.DeviceAccessToken, cfg.DeviceTimeout, loc, recorder), nil
}

// GetPerson looks up a worker. A non-2xx status or an empty payload is
// reported as ErrNotFound.
func (c *Client) GetPerson(ctx context.Context, pin int) (attendance.Worker, error) {
	env, err := c.get(ctx, EndpointPerson, "/api/person/get/"+strconv.Itoa(pin), url.Values{})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return attendance.Worker{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return attendance.Worker{}, err
	}
	if isEmptyJSON(env.Data) {
		return attendance.Worker{}, ErrNotFound
	}
	var person personPayload
	if err := json.Unmarshal(env.Data, &person); err != nil {
		return attendance.Worker{}, fmt.Errorf("%w: person %d: %v", ErrMalformed, pin, err)
	}
	return attendance.Worker{
		PIN:        pin,
		FirstName:  strings.TrimSpace(person.Name),
		LastName:   strings.TrimSpace(person.LastName),
		Department: strings.TrimSpace(person.DeptName),
	}, nil
}

// GetTransactions lists the scans of pin between start and end, as dates.
// No data yields an empty page.
func (c *Client) GetTransactions(ctx context.Context, pin int, start, end time.Time, pageSize int) (TransactionPage, error) {
	query := url.Values{}
	query.Set("startDate", start.Format(config.DateLayout))
	query.Set("endDate", end.Format(config.DateLayout))
	query.Set("pageNo", "1")
	query.Set("pageSize", strconv.Itoa(pageSize))

	env, err := c.get(ctx, EndpointTransactions, "/api/v2/transaction/person/"+strconv.Itoa(pin), query)
	if err != nil {
		return TransactionPage{}, err
	}
	if isEmptyJSON(env.Data) {
		return TransactionPage{}, nil
	}
	var page pagePayload[transactionPayload]
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return TransactionPage{}, fmt.Errorf("%w: transactions %d: %v", ErrMalformed, pin, err)
	}

	out := TransactionPage{
		Transactions: make([]attendance.Transaction, 0, len(page.Data)),
		Total:        page.Total,
	}
	for _, item := range page.Data {
		eventTime, err := c.parseTimestamp(item.EventTime)
		if err != nil {
			return TransactionPage{}, fmt.Errorf("%w: transactions %d: %v", ErrMalformed, pin, err)
		}
		out.Transactions = append(out.Transactions, attendance.Transaction{
			DeviceName: item.DevName,
			EventTime:  eventTime,
		})
	}
	if out.Total < len(out.Transactions) {
		out.Total = len(out.Transactions)
	}
	return out, nil
}

// GetFirstInLastOut returns the most recent day summaries for pin. A null
// payload is ErrNotFound; a payload without rows is an empty slice. Rows
// without a first scan are dropped.
func (c *Client) GetFirstInLastOut(ctx context.Context, pin, pageSize int) ([]DaySummary, error) {
	query := url.Values{}
	query.Set("pageNo", "1")
	query.Set("pageSize", strconv.Itoa(pageSize))

	env, err := c.get(ctx, EndpointSummary, "/api/v2/transaction/firstInAndLastOut/"+strconv.Itoa(pin), query)
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(string(env.Data)); trimmed == "" || trimmed == "null" {
		return nil, ErrNotFound
	}
	if isEmptyJSON(env.Data) {
		return []DaySummary{}, nil
	}
	var page pagePayload[summaryPayload]
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, fmt.Errorf("%w: summary %d: %v", ErrMalformed, pin, err)
	}

	summaries := make([]DaySummary, 0, len(page.Data))
	for _, item := range page.Data {
		if strings.TrimSpace(item.FirstInTime) == "" {
			continue
		}
		firstIn, err := c.parseTimestamp(item.FirstInTime)
		if err != nil {
			return nil, fmt.Errorf("%w: summary %d: %v", ErrMalformed, pin, err)
		}
		summary := DaySummary{
			Date:     time.Date(firstIn.Year(), firstIn.Month(), firstIn.Day(), 0, 0, 0, 0, c.loc),
			FirstIn:  &firstIn,
			Name:     item.Name,
			LastName: item.LastName,
			DeptCode: item.DeptCode,
		}
		if strings.TrimSpace(item.LastOutTime) != "" {
			lastOut, err := c.parseTimestamp(item.LastOutTime)
			if err != nil {
				return nil, fmt.Errorf("%w: summary %d: %v", ErrMalformed, pin, err)
			}
			summary.LastOut = &lastOut
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (c *Client) parseTimestamp(value string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, strings.TrimSpace(value), c.loc)
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) (envelope, error) {
	start := time.Now()
	status, env, err := c.do(ctx, endpoint, path, query)
	if c.recorder != nil {
		c.recorder.RecordCall(endpoint, status, time.Since(start), err)
	}
	return env, err
}

func (c *Client) do(ctx context.Context, endpoint, path string, query url.Values) (int, envelope, error) {
	query.Set("access_token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, envelope{}, ctxErr
		}
		// url.Error carries the full URL, access token included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, envelope{}, fmt.Errorf("%w: %s: %v", ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, envelope{}, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return resp.StatusCode, env, nil
}
