// Package providers implements HTTP acquisition sources.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newCircuit(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes the HTTP request once through the circuit breaker.
// Failures are returned to the caller without retrying.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			drain(resp)
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			drain(resp)
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// series is one output column backed by a provider's value array.
type series struct {
	column dataset.Column
	values []*float64
}

// hourlyTable turns parallel time/value arrays into a raw table, keeping
// only instants inside the window. Timestamps are emitted as RFC3339 UTC.
func hourlyTable(times []time.Time, cols []series, keep func(time.Time) bool) (dataset.Table, error) {
	t := dataset.Table{Columns: []string{dataset.TimestampColumn}}
	for _, c := range cols {
		if len(c.values) != len(times) {
			return dataset.Table{}, fmt.Errorf("%s: %d values for %d timestamps", c.column, len(c.values), len(times))
		}
		t.Columns = append(t.Columns, string(c.column))
	}

	for i, ts := range times {
		if keep != nil && !keep(ts) {
			continue
		}
		row := []string{ts.UTC().Format(time.RFC3339)}
		for _, c := range cols {
			row = append(row, formatValue(c.values[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func formatValue(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
