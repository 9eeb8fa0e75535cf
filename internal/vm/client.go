// Package vm pushes swath points into Victoria Metrics.
package vm

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rtm0/aodsubset/internal/swath"
)

// Client is a Victoria Metrics client capable of inserting swath points via
// the InfluxDB line protocol or the CSV import API.
type Client struct {
	httpCli      *http.Client
	insertURL    *url.URL
	apiParams    apiParamsFunc
	metricPrefix string
	maxConns     int
	pointToText  pointToTextFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client.
func NewClient(insertURL string, maxConns int, metricPrefix string) (*Client, error) {
	u, err := url.Parse(insertURL)
	if err != nil {
		return nil, eris.Wrapf(err, "vm: parse insert url %q", insertURL)
	}
	if maxConns < 1 {
		maxConns = 1
	}

	matches, err := regexp.MatchString(metricPrefixRE, metricPrefix)
	if err != nil {
		return nil, eris.Wrap(err, "vm: match metric prefix")
	}
	if !matches {
		return nil, eris.Errorf("vm: metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[u.Path]
	pointToText := pointToTextFuncs[u.Path]
	if apiParams == nil || pointToText == nil {
		return nil, eris.Errorf("vm: inserting into %q is not supported", insertURL)
	}

	return &Client{
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
		insertURL:    u,
		apiParams:    apiParams,
		metricPrefix: metricPrefix,
		maxConns:     maxConns,
		pointToText:  pointToText,
	}, nil
}

// Push inserts every point of d in batches of batchSize, with up to maxConns
// requests in flight. The first failed request cancels the rest.
func (c *Client) Push(ctx context.Context, d *swath.Dataset, batchSize int) error {
	if batchSize < 1 {
		batchSize = d.Len()
	}
	n := d.Len()
	if n == 0 {
		return nil
	}

	insertURL := c.urlFor(d.Name)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConns)
	for begin := 0; begin < n; begin += batchSize {
		limit := min(begin+batchSize, n)
		g.Go(func() error {
			return c.insert(gctx, insertURL, d, begin, limit)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	zap.L().Info("vm: points inserted", zap.Int("points", n), zap.String("url", insertURL))
	return nil
}

// urlFor returns the insert URL with the API parameters for variable.
func (c *Client) urlFor(variable string) string {
	u := *c.insertURL
	q := u.Query()
	for name, value := range c.apiParams(c.metricPrefix, variable) {
		q.Set(name, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// insert posts points [begin, limit) of d.
func (c *Client) insert(ctx context.Context, insertURL string, d *swath.Dataset, begin, limit int) error {
	body := pointsToText(d, begin, limit, c.metricPrefix, c.pointToText)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, insertURL, body)
	if err != nil {
		return eris.Wrap(err, "vm: build request")
	}
	req.Header.Set("Content-Type", "text/plain")

	res, err := c.httpCli.Do(req)
	if err != nil {
		return eris.Wrap(err, "vm: post data")
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		zap.L().Warn("vm: failed to drain response body", zap.Error(err))
	}
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return eris.Errorf("vm: unexpected status %d", res.StatusCode)
	}
	return nil
}

type apiParamsFunc func(metricPrefix, variable string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

func influxDBAPIParams(_, _ string) map[string]string {
	return nil
}

func csvAPIParams(metricPrefix, variable string) map[string]string {
	return map[string]string{
		"format": fmt.Sprintf("1:label:la,2:label:lo,3:metric:%s_%s", metricPrefix, strings.ToLower(variable)),
	}
}

type pointToTextFunc func(sb *strings.Builder, metricPrefix, variable string, lat, lon, value float64)

// pointsToText converts points [begin, limit) of d to text, one per line.
func pointsToText(d *swath.Dataset, begin, limit int, metricPrefix string, pointToText pointToTextFunc) io.Reader {
	var sb strings.Builder
	variable := strings.ToLower(d.Name)
	for i := begin; i < limit; i++ {
		pointToText(&sb, metricPrefix, variable, d.Lat[i], d.Lon[i], d.Value[i])
		sb.WriteString("\n")
	}
	return strings.NewReader(sb.String())
}

var pointToTextFuncs = map[string]pointToTextFunc{
	"/influx/write":        pointToInfluxDB,
	"/influx/api/v2/write": pointToInfluxDB,
	"/write":               pointToInfluxDB,
	"/api/v2/write":        pointToInfluxDB,
	"/api/v1/import/csv":   pointToCSV,
}

// pointToInfluxDB writes a point in InfluxDB line protocol. The server
// assigns the timestamp.
func pointToInfluxDB(sb *strings.Builder, metricPrefix, variable string, lat, lon, value float64) {
	fmt.Fprintf(sb, "%s,la=%.2f,lo=%.2f %s=%g", metricPrefix, lat, lon, variable, value)
}

// pointToCSV writes a point as a CSV record.
func pointToCSV(sb *strings.Builder, _, _ string, lat, lon, value float64) {
	fmt.Fprintf(sb, "%.2f,%.2f,%g", lat, lon, value)
}
