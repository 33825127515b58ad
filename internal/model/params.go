// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/jeranaias/ollamachat/internal/ollama"
)

const (
	// DefaultTemperature is used when the temperature text is not a number.
	DefaultTemperature = 0.0

	// DefaultMaxTokens is used when the max-tokens text is not an integer.
	DefaultMaxTokens = 4000

	MinTemperature = 0.0
	MaxTemperature = 1.0
)

// ErrNoModel is returned when no usable model has been selected.
var ErrNoModel = errors.New("no model selected")

// RequestParameters are the settings snapshotted for one request.
type RequestParameters struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewRequestParameters builds parameters from the raw text of the input
// fields. Bad numbers fall back to defaults; only a missing model is an error.
func NewRequestParameters(model, temperature, maxTokens string) (RequestParameters, error) {
	model = strings.TrimSpace(model)
	if !UsableModel(model) {
		return RequestParameters{}, ErrNoModel
	}
	return RequestParameters{
		Model:       model,
		Temperature: ParseTemperature(temperature),
		MaxTokens:   ParseMaxTokens(maxTokens),
	}, nil
}

// ParseTemperature parses s as a float and clamps it to [0, 1]. Text that is
// not a number, including NaN, gives DefaultTemperature. Numbers beyond
// float64 range clamp like any other out-of-range value.
func ParseTemperature(s string) float64 {
	t, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return DefaultTemperature
	}
	if math.IsNaN(t) {
		return DefaultTemperature
	}
	return math.Max(MinTemperature, math.Min(MaxTemperature, t))
}

// ParseMaxTokens parses s as an integer with a floor of 1. Text that is not
// an integer gives DefaultMaxTokens.
func ParseMaxTokens(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			// Out of int range: keep the sign, drop the magnitude
			if strings.HasPrefix(strings.TrimSpace(s), "-") {
				return 1
			}
			return math.MaxInt32
		}
		return DefaultMaxTokens
	}
	return max(1, n)
}

// Options converts the parameters to the wire options block.
func (p RequestParameters) Options() *ollama.Options {
	return &ollama.Options{Temperature: p.Temperature, NumPredict: p.MaxTokens}
}

// UsableModel reports whether name can be sent to the server. The
// placeholder shown when the model list failed is not usable.
func UsableModel(name string) bool {
	return name != "" && name != ollama.ModelsUnavailable
}
