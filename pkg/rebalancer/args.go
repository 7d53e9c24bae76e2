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

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// LoadArgs reads a YAML or JSON args file. Unknown fields are rejected.
// The result is neither defaulted nor validated.
func LoadArgs(path string) (*RebalancerArgs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	args := &RebalancerArgs{}
	if err := yaml.UnmarshalStrict(data, args); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return args, nil
}
