// Package vm pushes extracted cross-sections into Victoria Metrics, one
// sample per column, level and slot.
package vm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Client is a Victoria Metrics client capable of inserting cross-section
// metrics via various protocols.
type Client struct {
	logger       *slog.Logger
	httpCli      *http.Client
	insertURL    string
	metricPrefix string
	recToText    recToTextFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client.
func NewClient(logger *slog.Logger, insertURL string, maxConns int, metricPrefix string) (*Client, error) {
	url, err := url.Parse(insertURL)
	if err != nil {
		return nil, err
	}

	matches, err := regexp.Match(metricPrefixRE, []byte(metricPrefix))
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, fmt.Errorf("metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[url.Path]
	if apiParams == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}
	q := url.Query()
	for name, value := range apiParams(metricPrefix) {
		q.Add(name, value)
	}
	url.RawQuery = q.Encode()

	recToText := recToTextFuncs[url.Path]
	if recToText == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		insertURL:    url.String(),
		metricPrefix: metricPrefix,
		recToText:    recToText,
	}, nil
}

// Insert inserts cross-section records into Victoria Metrics.
func (c *Client) Insert(ctx context.Context, recs []Record) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.insertURL, recsToText(recs, c.metricPrefix, c.recToText))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	res, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("could not post data: %w", err)
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		c.logger.Error("Failed to drain response body", "err", err)
	}
	if res.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

type apiParamsFunc func(string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

func influxDBAPIParams(metricPrefix string) map[string]string {
	return map[string]string{"precision": "ms"}
}

func csvAPIParams(metricPrefix string) map[string]string {
	return map[string]string{
		"format": fmt.Sprintf(""+
			"1:time:unix_ms,"+
			"2:label:col,"+
			"3:label:la,"+
			"4:label:lo,"+
			"5:label:lev,"+
			"6:metric:%[1]s_shade,"+
			"7:metric:%[1]s_contour,"+
			"8:metric:%[1]s_along,"+
			"9:metric:%[1]s_upward", metricPrefix),
	}
}

type recToTextFunc func(*strings.Builder, *Record, string)

// recsToText converts multiple records to text. Records that carry no value
// at all are left out.
func recsToText(recs []Record, metricPrefix string, recToText recToTextFunc) io.Reader {
	var sb strings.Builder
	for _, r := range recs {
		if r.empty() {
			continue
		}
		recToText(&sb, &r, metricPrefix)
		sb.WriteString("\n")
	}
	return strings.NewReader(sb.String())
}

var recToTextFuncs = map[string]recToTextFunc{
	"/influx/write":        recToInfluxDB,
	"/influx/api/v2/write": recToInfluxDB,
	"/write":               recToInfluxDB,
	"/api/v2/write":        recToInfluxDB,
	"/api/v1/import/csv":   recToCSV,
}

func (r *Record) metrics() []struct {
	name  string
	value float64
} {
	return []struct {
		name  string
		value float64
	}{
		{"shade", r.Shade},
		{"contour", r.Contour},
		{"along", r.Along},
		{"upward", r.Upward},
	}
}

func (r *Record) empty() bool {
	for _, m := range r.metrics() {
		if !math.IsNaN(m.value) {
			return false
		}
	}
	return true
}

var influxDBTagsFmt = "%s,col=%d,la=%.4f,lo=%.4f,lev=%g"

// recToInfluxDB converts a record into InfluxDB line protocol v2 and appends
// it to the string builder. NaN fields are omitted.
func recToInfluxDB(sb *strings.Builder, r *Record, metricPrefix string) {
	fmt.Fprintf(sb, influxDBTagsFmt, metricPrefix, r.Column, r.Latitude, r.Longitude, r.Level)
	sep := byte(' ')
	for _, m := range r.metrics() {
		if math.IsNaN(m.value) {
			continue
		}
		sb.WriteByte(sep)
		sb.WriteString(m.name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(m.value, 'g', -1, 64))
		sep = ','
	}
	fmt.Fprintf(sb, " %d", r.Timestamp)
}

var csvFmt = "%d,%d,%.4f,%.4f,%g"

// recToCSV converts a record into a CSV record and appends it to the string
// builder. NaN values are left empty.
func recToCSV(sb *strings.Builder, r *Record, _ string) {
	fmt.Fprintf(sb, csvFmt, r.Timestamp, r.Column, r.Latitude, r.Longitude, r.Level)
	for _, m := range r.metrics() {
		sb.WriteByte(',')
		if !math.IsNaN(m.value) {
			sb.WriteString(strconv.FormatFloat(m.value, 'g', -1, 64))
		}
	}
}
