/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package quantity converts Kubernetes resource quantities into the bounded
// integers used by the solver and back into human scale values.
package quantity

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Kind identifies the resource a quantity describes.
type Kind string

const (
	CPU    Kind = "cpu"
	Memory Kind = "memory"
)

const (
	// DefaultCPUDivisor is the number of millicores per scaled CPU unit.
	DefaultCPUDivisor int64 = 10
	// DefaultMemoryDivisor is the number of mebibytes per scaled memory unit.
	DefaultMemoryDivisor int64 = 10
	// DefaultMaxLinear is used when the solver has no numeric table to probe.
	DefaultMaxLinear int64 = 1 << 16

	mebibyte = 1 << 20
	// maxProbe stops DiscoverMaxLinear on tables that never miss.
	maxProbe int64 = 1 << 24
)

// NumericTable is the part of a solver's numeric representation the codec
// relies on: the set of integers the solver can encode.
type NumericTable interface {
	Contains(n int64) bool
}

// DiscoverMaxLinear probes the table from 1 upwards and returns the last
// value before the first miss.
func DiscoverMaxLinear(table NumericTable) (int64, error) {
	if table == nil {
		return DefaultMaxLinear, nil
	}
	var n int64
	for n < maxProbe && table.Contains(n+1) {
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("solver numeric table does not contain 1")
	}
	return n, nil
}

// OverflowError reports a quantity the solver cannot represent.
type OverflowError struct {
	Quantity   string
	Kind       Kind
	Normalized int64
	Divisor    int64
	MaxLinear  int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s quantity %q normalizes to %d which exceeds the solver limit of %d units of %d",
		e.Kind, e.Quantity, e.Normalized, e.MaxLinear, e.Divisor)
}

// ParseError reports a quantity string that is not a valid non-negative quantity.
type ParseError struct {
	Quantity string
	Kind     Kind
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s quantity %q: %v", e.Kind, e.Quantity, e.Err)
	}
	return fmt.Sprintf("invalid %s quantity %q", e.Kind, e.Quantity)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Codec scales normalized quantities by a per-kind divisor and keeps the
// result within [1, MaxLinear].
type Codec struct {
	cpuDivisor int64
	memDivisor int64
	maxLinear  int64
}

// NewCodec returns a codec. Zero divisors fall back to the defaults.
func NewCodec(cpuDivisor, memDivisor, maxLinear int64) (*Codec, error) {
	if cpuDivisor == 0 {
		cpuDivisor = DefaultCPUDivisor
	}
	if memDivisor == 0 {
		memDivisor = DefaultMemoryDivisor
	}
	if cpuDivisor < 0 || memDivisor < 0 {
		return nil, fmt.Errorf("divisors must be positive, got cpu=%d memory=%d", cpuDivisor, memDivisor)
	}
	if maxLinear < 1 {
		return nil, fmt.Errorf("solver linear limit must be at least 1, got %d", maxLinear)
	}
	return &Codec{cpuDivisor: cpuDivisor, memDivisor: memDivisor, maxLinear: maxLinear}, nil
}

func (c *Codec) MaxLinear() int64 {
	return c.maxLinear
}

// Divisor returns the number of display units per scaled unit.
func (c *Codec) Divisor(kind Kind) int64 {
	if kind == Memory {
		return c.memDivisor
	}
	return c.cpuDivisor
}

// ToScaled converts a quantity string into solver units. Values that would
// floor to zero are clamped to 1; normalized values above MaxLinear*divisor
// yield an *OverflowError.
func (c *Codec) ToScaled(q string, kind Kind) (int64, error) {
	normalized, err := ToNormalizedDisplay(q, kind)
	if err != nil {
		return 0, err
	}
	divisor := c.Divisor(kind)
	if normalized > c.limit(divisor) {
		return 0, &OverflowError{
			Quantity:   q,
			Kind:       kind,
			Normalized: normalized,
			Divisor:    divisor,
			MaxLinear:  c.maxLinear,
		}
	}
	return clamp(normalized/divisor, 1, c.maxLinear), nil
}

// limit is the largest normalized value that scales into range.
func (c *Codec) limit(divisor int64) int64 {
	if c.maxLinear > math.MaxInt64/divisor {
		return math.MaxInt64
	}
	return c.maxLinear * divisor
}

// FromScaled converts solver units back into display units (millicores or Mi).
func (c *Codec) FromScaled(scaled int64, kind Kind) int64 {
	return scaled * c.Divisor(kind)
}

// ToNormalizedDisplay returns millicores for CPU and mebibytes for memory.
// A bare CPU integer means whole cores, a bare memory integer means bytes.
func ToNormalizedDisplay(q string, kind Kind) (int64, error) {
	parsed, err := resource.ParseQuantity(q)
	if err != nil {
		return 0, &ParseError{Quantity: q, Kind: kind, Err: err}
	}
	if parsed.Sign() < 0 {
		return 0, &ParseError{Quantity: q, Kind: kind}
	}
	switch kind {
	case CPU:
		return parsed.MilliValue(), nil
	case Memory:
		return parsed.Value() / mebibyte, nil
	default:
		return 0, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
