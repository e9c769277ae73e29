package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lifeol/core"
)

// DailyReport is one day of service-wide counters, ready for export.
type DailyReport struct {
	Day            string               `json:"day"`
	ActiveUsers    int                  `json:"active_users"`
	ExpAwarded     int                  `json:"exp_awarded"`
	LevelUps       int                  `json:"level_ups"`
	Unlocks        int                  `json:"unlocks"`
	ExpByAttribute map[core.AttrKey]int `json:"exp_by_attribute,omitempty"`
}

// Report assembles the counters for one day.
func (c *Collector) Report(day string) DailyReport {
	return DailyReport{
		Day:            day,
		ActiveUsers:    c.ActiveUsers(day),
		ExpAwarded:     c.ExpAwarded(day),
		LevelUps:       c.LevelUps(day),
		Unlocks:        c.Unlocks(day),
		ExpByAttribute: c.ExpByAttribute(),
	}
}

// Exporter ships daily reports to an external destination.
type Exporter interface {
	Export(ctx context.Context, report DailyReport) error
	Flush(ctx context.Context) error
	Close() error
}

// HTTPExporter batches reports and posts them as JSON to an endpoint.
type HTTPExporter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	buffer     []DailyReport
	batchSize  int
}

func NewHTTPExporter(endpoint, apiKey string, batchSize int) *HTTPExporter {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &HTTPExporter{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		buffer:    make([]DailyReport, 0, batchSize),
		batchSize: batchSize,
	}
}

func (e *HTTPExporter) Export(ctx context.Context, report DailyReport) error {
	e.buffer = append(e.buffer, report)
	if len(e.buffer) >= e.batchSize {
		return e.Flush(ctx)
	}
	return nil
}

func (e *HTTPExporter) Flush(ctx context.Context) error {
	if len(e.buffer) == 0 {
		return nil
	}

	payload, err := json.Marshal(e.buffer)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send reports: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("export failed with status %d: %s", resp.StatusCode, string(body))
	}

	e.buffer = e.buffer[:0]
	return nil
}

func (e *HTTPExporter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Flush(ctx)
}

// WriterExporter writes reports as JSON lines, one per Export call. Useful
// for log shipping or local files.
type WriterExporter struct {
	w   io.Writer
	enc *json.Encoder
}

func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w, enc: json.NewEncoder(w)}
}

func (e *WriterExporter) Export(_ context.Context, report DailyReport) error {
	return e.enc.Encode(report)
}

func (e *WriterExporter) Flush(context.Context) error { return nil }

func (e *WriterExporter) Close() error {
	if closer, ok := e.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
