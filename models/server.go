package models

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// DefaultServerTimeout bounds a single forecast request.
const DefaultServerTimeout = 5 * time.Minute

// ServerPredictor forwards prediction requests to a forecast server over
// HTTP. The server receives one JSON request per batch and answers with
// either quantile arrays or sample paths per series. Backpressure
// statuses map to ErrResourceExhausted so callers can retry with smaller
// batches.
type ServerPredictor struct {
	url    string
	name   string
	cfg    Config
	client *http.Client
}

// ServerOption configures a ServerPredictor.
type ServerOption func(*ServerPredictor)

// WithServerName overrides the model name reported in results.
func WithServerName(name string) ServerOption {
	return func(p *ServerPredictor) { p.name = name }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ServerOption {
	return func(p *ServerPredictor) { p.client = client }
}

// WithServerTimeout sets the per-request timeout on the default client.
func WithServerTimeout(timeout time.Duration) ServerOption {
	return func(p *ServerPredictor) { p.client.Timeout = timeout }
}

// NewServerPredictor creates a predictor that queries url for forecasts.
func NewServerPredictor(cfg Config, url string, opts ...ServerOption) (*ServerPredictor, error) {
	if err := cfg.validate("NewServerPredictor"); err != nil {
		return nil, err
	}
	if url == "" {
		return nil, errors.NewValueError("NewServerPredictor", "url must not be empty")
	}
	p := &ServerPredictor{
		url:    url,
		name:   "server",
		cfg:    cfg.withDefaults(),
		client: &http.Client{Timeout: DefaultServerTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name implements Predictor.
func (p *ServerPredictor) Name() string { return p.name }

// Predict implements Predictor.
func (p *ServerPredictor) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "ServerPredictor.Predict")

	if len(inputs) == 0 {
		return nil, nil
	}

	keys := forecast.NewConfig(p.cfg.QuantileLevels)
	req := serverRequest{
		Model:            p.name,
		PredictionLength: p.cfg.Horizon,
		QuantileLevels:   keys.QuantileLevels,
		Intervals:        keys.Intervals,
		Freq:             inputs[0].Freq.String(),
		Inputs:           make([]serverSeries, len(inputs)),
	}
	for i, in := range inputs {
		req.Inputs[i] = serverSeries{
			ItemID: in.ItemID,
			Start:  in.Start.UTC().Format(time.RFC3339),
			Target: toWire(in.Target),
		}
	}

	resp, err := p.post(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Forecasts) != len(inputs) {
		return nil, errors.NewDimensionError("ServerPredictor.Predict", len(inputs), len(resp.Forecasts), 0)
	}

	fcs = make([]forecast.Forecast, len(inputs))
	for i, sf := range resp.Forecasts {
		fcs[i], err = sf.decode(inputs[i], keys)
		if err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

func (p *ServerPredictor) post(ctx context.Context, req serverRequest) (*serverResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "gifteval: ServerPredictor: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "gifteval: ServerPredictor: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "gifteval: ServerPredictor: request failed")
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInsufficientStorage:
		return nil, errors.NewModelError("ServerPredictor.Predict", "server overloaded", errors.ErrResourceExhausted)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, errors.NewModelError("ServerPredictor.Predict",
			"server returned status "+httpResp.Status+": "+string(snippet), nil)
	}

	var resp serverResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "gifteval: ServerPredictor: decode response")
	}
	return &resp, nil
}

type serverRequest struct {
	Model            string    `json:"model"`
	PredictionLength int       `json:"prediction_length"`
	QuantileLevels   []float64 `json:"quantile_levels,omitempty"`

	// Intervals carries the same levels as prediction-interval coverages
	// for statsforecast-style backends.
	Intervals []int          `json:"intervals,omitempty"`
	Freq      string         `json:"freq"`
	Inputs    []serverSeries `json:"inputs"`
}

type serverSeries struct {
	ItemID string      `json:"item_id"`
	Start  string      `json:"start"`
	Target []wireValue `json:"target"`
}

type serverResponse struct {
	Forecasts []serverForecast `json:"forecasts"`
}

// serverForecast carries one forecast in either representation. Samples
// take precedence when both are present.
type serverForecast struct {
	ItemID    string                 `json:"item_id"`
	Mean      []wireValue            `json:"mean,omitempty"`
	Quantiles map[string][]wireValue `json:"quantiles,omitempty"`
	Samples   [][]wireValue          `json:"samples,omitempty"`
}

func (sf serverForecast) decode(in forecast.Input, keys forecast.Config) (forecast.Forecast, error) {
	if len(sf.Samples) > 0 {
		samples := make([][]float64, len(sf.Samples))
		for i, row := range sf.Samples {
			samples[i] = fromWire(row)
		}
		return forecast.NewSampleForecast(in.ItemID, in.ForecastStart(), samples)
	}

	arrays := make(map[string][]float64, len(sf.Quantiles)+1)
	if len(sf.Mean) > 0 {
		arrays["mean"] = fromWire(sf.Mean)
	}
	for key, row := range sf.Quantiles {
		arrays[key] = fromWire(row)
	}
	// Statsforecast-style backends key quantiles by interval coverage
	// (lo-80, hi-80). Alias those onto the levels that requested them.
	// ForecastKeys and StatsforecastKeys both lead with "mean", hence
	// the offset.
	for i := range keys.QuantileLevels {
		levelKey := keys.ForecastKeys[i+1]
		if _, ok := arrays[levelKey]; ok {
			continue
		}
		if row, ok := arrays[keys.StatsforecastKeys[i+1]]; ok {
			arrays[levelKey] = row
		}
	}
	if len(arrays) == 0 {
		return nil, errors.NewModelError("ServerPredictor.Predict",
			"forecast for "+in.ItemID+" has no samples, mean, or quantiles", errors.ErrEmptyData)
	}
	return forecast.NewQuantileForecast(in.ItemID, in.ForecastStart(), arrays)
}

// wireValue is a float64 that survives JSON round trips of NaN as null.
type wireValue float64

func (v wireValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (v *wireValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = wireValue(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = wireValue(f)
	return nil
}

func toWire(values []float64) []wireValue {
	out := make([]wireValue, len(values))
	for i, v := range values {
		out[i] = wireValue(v)
	}
	return out
}

func fromWire(values []wireValue) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
