package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/gifteval/gifteval/pkg/errors"
)

// Defaults for parameterized models when the caller supplies none.
const (
	DefaultWindowSize = 10
	DefaultAROrder    = 10
)

// Names returns the model names accepted by New, in registry order.
func Names() []string {
	return []string{
		"naive",
		"seasonal_naive",
		"historic_average",
		"window_average",
		"drift",
		"linear_trend",
		"ets",
		"ar",
		"server",
	}
}

// New builds a predictor by registry name. params carries model-specific
// settings decoded from a suite configuration:
//
//	window_average: window (int)
//	ar:             order (int)
//	server:         url (string, required), name (string),
//	                timeout_seconds (int)
func New(name string, cfg Config, params map[string]any) (Predictor, error) {
	switch name {
	case "naive":
		return NewNaive(cfg)
	case "seasonal_naive":
		return NewSeasonalNaive(cfg)
	case "historic_average":
		return NewHistoricAverage(cfg)
	case "window_average":
		window, err := intParam(params, "window", DefaultWindowSize)
		if err != nil {
			return nil, err
		}
		return NewWindowAverage(cfg, window)
	case "drift":
		return NewDrift(cfg)
	case "linear_trend":
		return NewLinearTrend(cfg)
	case "ets":
		return NewETS(cfg)
	case "ar":
		order, err := intParam(params, "order", DefaultAROrder)
		if err != nil {
			return nil, err
		}
		return NewAR(cfg, order)
	case "server":
		url, err := stringParam(params, "url", "")
		if err != nil {
			return nil, err
		}
		if url == "" {
			return nil, errors.NewValueError("models.New", `server model requires a "url" parameter`)
		}
		label, err := stringParam(params, "name", "")
		if err != nil {
			return nil, err
		}
		timeout, err := intParam(params, "timeout_seconds", 0)
		if err != nil {
			return nil, err
		}
		var opts []ServerOption
		if label != "" {
			opts = append(opts, WithServerName(label))
		}
		if timeout > 0 {
			opts = append(opts, WithServerTimeout(time.Duration(timeout)*time.Second))
		}
		return NewServerPredictor(cfg, url, opts...)
	default:
		return nil, errors.NewValueError("models.New",
			fmt.Sprintf("unknown model %q (known: %s)", name, strings.Join(Names(), ", ")))
	}
}

// intParam reads an integer setting, tolerating the numeric types YAML
// and JSON decoders produce.
func intParam(params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.NewValueError("models.New", fmt.Sprintf("parameter %q must be an integer", key))
		}
		return int(v), nil
	default:
		return 0, errors.NewValueError("models.New", fmt.Sprintf("parameter %q must be an integer", key))
	}
}

// stringParam reads a string setting.
func stringParam(params map[string]any, key, def string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.NewValueError("models.New", fmt.Sprintf("parameter %q must be a string", key))
	}
	return s, nil
}
