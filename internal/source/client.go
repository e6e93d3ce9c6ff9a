// Package source implements the HTTP client for the upstream monitoring
// backend that linkalert polls for sensor snapshots.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/user/linkalert/internal/model"
	"github.com/user/linkalert/internal/util"
)

// sensorRow matches one row of the backend's sensor table response.
type sensorRow struct {
	ObjID     json.Number `json:"objid"`
	Sensor    string      `json:"sensor"`
	Status    string      `json:"status"`
	StatusRaw int         `json:"status_raw"`
	Message   string      `json:"message_raw"`
	LastValue string      `json:"lastvalue"`
}

// tableResponse is the envelope of the sensor table endpoint.
type tableResponse struct {
	Sensors []sensorRow `json:"sensors"`
}

// Client fetches sensor snapshots over the backend's JSON table API.
type Client struct {
	cfg    util.SourceConfig
	client *http.Client
}

// New creates a client for the configured source.
func New(cfg util.SourceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the configured source label.
func (c *Client) Name() string { return c.cfg.Name }

// FetchSnapshots retrieves the current state of all sensors in one batch.
// Transport errors are returned to the caller, which feeds them into the
// source health monitor.
func (c *Client) FetchSnapshots(ctx context.Context) ([]model.SensorSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sensors: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sensors: status %d", resp.StatusCode)
	}

	var table tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode sensor table: %w", err)
	}

	now := time.Now().Unix()
	snapshots := make([]model.SensorSnapshot, 0, len(table.Sensors))
	for _, row := range table.Sensors {
		snapshots = append(snapshots, model.SensorSnapshot{
			SensorID:  row.ObjID.String(),
			Name:      row.Sensor,
			Status:    row.Status,
			StatusRaw: row.StatusRaw,
			Message:   row.Message,
			LastValue: row.LastValue,
			Timestamp: now,
		})
	}
	return snapshots, nil
}

func (c *Client) endpoint() string {
	q := url.Values{}
	q.Set("content", "sensors")
	q.Set("columns", "objid,sensor,status,status_raw,message_raw,lastvalue")
	q.Set("count", strconv.Itoa(2500))
	if c.cfg.Username != "" {
		q.Set("username", c.cfg.Username)
		q.Set("passhash", c.cfg.Passhash)
	}
	return c.cfg.URL + "/api/table.json?" + q.Encode()
}
