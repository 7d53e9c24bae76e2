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

package quantity

import (
	"errors"
	"testing"
)

type boundedTable int64

func (b boundedTable) Contains(n int64) bool {
	return n >= 1 && n <= int64(b)
}

func TestToNormalizedDisplay(t *testing.T) {
	testCases := []struct {
		name    string
		q       string
		kind    Kind
		want    int64
		wantErr bool
	}{
		{name: "millicores", q: "500m", kind: CPU, want: 500},
		{name: "whole cores", q: "2", kind: CPU, want: 2000},
		{name: "fractional cores", q: "1.5", kind: CPU, want: 1500},
		{name: "mebibytes", q: "512Mi", kind: Memory, want: 512},
		{name: "gibibytes", q: "2Gi", kind: Memory, want: 2048},
		{name: "kibibytes", q: "2048Ki", kind: Memory, want: 2},
		{name: "bare bytes", q: "1048576", kind: Memory, want: 1},
		{name: "below one mebibyte", q: "500Ki", kind: Memory, want: 0},
		{name: "garbage", q: "lots", kind: CPU, wantErr: true},
		{name: "negative", q: "-1", kind: Memory, wantErr: true},
		{name: "unknown kind", q: "1", kind: Kind("gpu"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToNormalizedDisplay(tc.q, tc.kind)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %d", tc.q, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestToScaled(t *testing.T) {
	codec, err := NewCodec(10, 10, 1000)
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name string
		q    string
		kind Kind
		want int64
	}{
		{name: "exact multiple", q: "500m", kind: CPU, want: 50},
		{name: "floors", q: "509m", kind: CPU, want: 50},
		{name: "clamps tiny cpu to one", q: "1m", kind: CPU, want: 1},
		{name: "clamps zero to one", q: "0", kind: CPU, want: 1},
		{name: "clamps tiny memory to one", q: "500Ki", kind: Memory, want: 1},
		{name: "memory", q: "2Gi", kind: Memory, want: 204},
		{name: "at the limit", q: "10", kind: CPU, want: 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := codec.ToScaled(tc.q, tc.kind)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestToScaledOverflow(t *testing.T) {
	codec, err := NewCodec(10, 10, 1000)
	if err != nil {
		t.Fatal(err)
	}

	// 10001m and 10009m floor to 1000 but still exceed 1000*10.
	for _, q := range []string{"10001m", "10009m", "10010m", "11", "64"} {
		got, err := codec.ToScaled(q, CPU)
		var overflow *OverflowError
		if !errors.As(err, &overflow) {
			t.Fatalf("%s: expected *OverflowError, got value %d err %v", q, got, err)
		}
		if overflow.MaxLinear != 1000 || overflow.Kind != CPU {
			t.Errorf("%s: unexpected overflow details %+v", q, overflow)
		}
	}
}

func TestToScaledLargeLimit(t *testing.T) {
	codec, err := NewCodec(1<<40, 10, 1<<40)
	if err != nil {
		t.Fatal(err)
	}
	got, err := codec.ToScaled("1", CPU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestScalingRoundTrip(t *testing.T) {
	codec, err := NewCodec(DefaultCPUDivisor, DefaultMemoryDivisor, DefaultMaxLinear)
	if err != nil {
		t.Fatal(err)
	}

	quantities := map[Kind][]string{
		CPU:    {"1m", "9m", "10m", "250m", "333m", "1", "2500m", "32"},
		Memory: {"1Ki", "1Mi", "9Mi", "100Mi", "129Mi", "1Gi", "3.5Gi", "64Gi"},
	}

	for kind, qs := range quantities {
		for _, q := range qs {
			scaled, err := codec.ToScaled(q, kind)
			if err != nil {
				t.Fatalf("%s %s: %v", kind, q, err)
			}
			if scaled < 1 {
				t.Errorf("%s %s: scaled value %d below 1", kind, q, scaled)
			}
			display, err := ToNormalizedDisplay(q, kind)
			if err != nil {
				t.Fatal(err)
			}
			back := codec.FromScaled(scaled, kind)
			diff := back - display
			if diff < 0 {
				diff = -diff
			}
			if diff > codec.Divisor(kind) {
				t.Errorf("%s %s: round trip %d vs %d exceeds quantization error %d", kind, q, back, display, codec.Divisor(kind))
			}
		}
	}
}

func TestDiscoverMaxLinear(t *testing.T) {
	got, err := DiscoverMaxLinear(boundedTable(4096))
	if err != nil {
		t.Fatal(err)
	}
	if got != 4096 {
		t.Errorf("expected 4096, got %d", got)
	}

	if _, err := DiscoverMaxLinear(boundedTable(0)); err == nil {
		t.Error("expected error for an empty table")
	}

	got, err = DiscoverMaxLinear(nil)
	if err != nil || got != DefaultMaxLinear {
		t.Errorf("expected default %d for nil table, got %d (%v)", DefaultMaxLinear, got, err)
	}
}

func TestNewCodecRejectsBadLimits(t *testing.T) {
	if _, err := NewCodec(-1, 10, 100); err == nil {
		t.Error("expected error for negative divisor")
	}
	if _, err := NewCodec(10, 10, 0); err == nil {
		t.Error("expected error for zero limit")
	}
}
