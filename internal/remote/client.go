package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spinonoir/PlantOS/internal/model"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 10 * time.Second

	// Error bodies beyond this are truncated.
	maxErrorBody = 4 << 10
)

// Gateway is the remote surface the sync and state layers depend on.
type Gateway interface {
	ListPlants(ctx context.Context) ([]model.Plant, error)
	CreatePlant(ctx context.Context, form model.PlantForm) (model.Plant, error)
	ListTasks(ctx context.Context, plantID string) ([]model.CareTask, error)
	ListTimeline(ctx context.Context, plantID string) ([]model.TimelineEvent, error)
	AddTimelineEvent(ctx context.Context, plantID string, payload model.TimelineEventCreate) (model.TimelineEvent, error)
	CompleteTask(ctx context.Context, taskID string) (model.CareTask, error)
	MergedSchedule(ctx context.Context, horizonDays int) ([]model.ScheduleDay, error)
	DueTasks(ctx context.Context, minutes int) ([]model.DueTask, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying client, including its timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets where rejected records are reported.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListPlants decodes plants one by one. A record that fails to decode or
// validate is logged and skipped so the rest of the list still arrives.
func (c *Client) ListPlants(ctx context.Context) ([]model.Plant, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/plants", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Plant, 0, len(raw))
	for i, item := range raw {
		var p model.Plant
		err := json.Unmarshal(item, &p)
		if err == nil {
			err = p.Validate()
		}
		if err != nil {
			c.logger.Warn("skipping invalid plant", "index", i, "plant_id", p.ID, "err", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) CreatePlant(ctx context.Context, form model.PlantForm) (model.Plant, error) {
	form = form.WithDefaults()
	var out model.Plant
	if err := c.do(ctx, http.MethodPost, "/plants", form, &out); err != nil {
		return model.Plant{}, err
	}
	return out, nil
}

func (c *Client) ListTasks(ctx context.Context, plantID string) ([]model.CareTask, error) {
	var out []model.CareTask
	if err := c.do(ctx, http.MethodGet, "/plants/"+url.PathEscape(plantID)+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTimeline(ctx context.Context, plantID string) ([]model.TimelineEvent, error) {
	var out []model.TimelineEvent
	if err := c.do(ctx, http.MethodGet, "/plants/"+url.PathEscape(plantID)+"/timeline", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddTimelineEvent(ctx context.Context, plantID string, payload model.TimelineEventCreate) (model.TimelineEvent, error) {
	var out model.TimelineEvent
	if err := c.do(ctx, http.MethodPost, "/plants/"+url.PathEscape(plantID)+"/timeline", payload, &out); err != nil {
		return model.TimelineEvent{}, err
	}
	return out, nil
}

func (c *Client) CompleteTask(ctx context.Context, taskID string) (model.CareTask, error) {
	var out model.CareTask
	if err := c.do(ctx, http.MethodPost, "/plants/tasks/"+url.PathEscape(taskID)+"/complete", nil, &out); err != nil {
		return model.CareTask{}, err
	}
	return out, nil
}

func (c *Client) MergedSchedule(ctx context.Context, horizonDays int) ([]model.ScheduleDay, error) {
	path := "/schedules/merged?horizon_days=" + strconv.Itoa(horizonDays)
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	days, err := DecodeSchedule(raw)
	if err != nil {
		return nil, &Error{Method: http.MethodGet, Path: path, Status: http.StatusOK, Err: fmt.Errorf("decode schedule: %w", err)}
	}
	return days, nil
}

func (c *Client) DueTasks(ctx context.Context, minutes int) ([]model.DueTask, error) {
	var out []model.DueTask
	if err := c.do(ctx, http.MethodGet, "/schedules/due?minutes="+strconv.Itoa(minutes), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeSchedule accepts either a list of days or a {date: [tasks]} object
// and returns days sorted by date.
func DecodeSchedule(raw []byte) ([]model.ScheduleDay, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []model.ScheduleDay{}, nil
	}

	var days []model.ScheduleDay
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &days); err != nil {
			return nil, err
		}
	case '{':
		var grouped map[string][]model.CareTask
		if err := json.Unmarshal(trimmed, &grouped); err != nil {
			return nil, err
		}
		days = make([]model.ScheduleDay, 0, len(grouped))
		for date, tasks := range grouped {
			days = append(days, model.ScheduleDay{Date: date, Tasks: tasks})
		}
	default:
		return nil, fmt.Errorf("unexpected schedule payload starting with %q", trimmed[0])
	}

	for i := range days {
		if days[i].Tasks == nil {
			days[i].Tasks = []model.CareTask{}
		}
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Method: method, Path: path, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
			Err:    errors.New(http.StatusText(resp.StatusCode)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
