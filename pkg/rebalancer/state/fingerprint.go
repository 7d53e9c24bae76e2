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

package state

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint identifies a snapshot by its node names and pod placement.
// Two snapshots with the same nodes and the same pods on the same nodes
// share a fingerprint regardless of object order.
func Fingerprint(objects []Object) string {
	var nodeNames []string
	for _, n := range Nodes(objects) {
		nodeNames = append(nodeNames, n.Name())
	}
	sort.Strings(nodeNames)

	var placements []string
	for _, p := range Pods(objects) {
		placements = append(placements, fmt.Sprintf("%s=%s", p.Name(), p.NodeName))
	}
	sort.Strings(placements)

	clusterSpec := fmt.Sprintf("nodes:%s|pods:%s",
		strings.Join(nodeNames, ","),
		strings.Join(placements, ","))

	hash := sha256.Sum256([]byte(clusterSpec))
	return fmt.Sprintf("%x", hash)[:16]
}
