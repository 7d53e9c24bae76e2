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

package rebalancer

import "fmt"

// Combination is one (moves, drains) target pair.
type Combination struct {
	Moves  int
	Drains int
}

func (c Combination) String() string {
	return fmt.Sprintf("%d moves/%d drains", c.Moves, c.Drains)
}

// GenerateCombinations returns the escalating search order. Step i asks for
// i moves; every drainStep-th step also adds a drain, capped at
// nodeCount-1 so one node always survives. A drainStep of zero never drains.
func GenerateCombinations(bound, drainStep, nodeCount int) []Combination {
	if bound < 0 {
		return nil
	}
	maxDrains := nodeCount - 1
	if maxDrains < 0 {
		maxDrains = 0
	}
	out := make([]Combination, 0, bound+1)
	drains := 0
	for moves := 0; moves <= bound; moves++ {
		if drainStep > 0 && moves > 0 && moves%drainStep == 0 && drains < maxDrains {
			drains++
		}
		out = append(out, Combination{Moves: moves, Drains: drains})
	}
	return out
}
