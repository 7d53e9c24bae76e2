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

package report

import (
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// maxUnavailable is the number of replicas of one deployment that may be
// restarted at the same time.
const maxUnavailable = 1

// Disruption describes how intrusive applying a script is.
type Disruption struct {
	// Waves is the number of sequential eviction rounds needed when at most
	// maxUnavailable replicas of each deployment are restarted per round.
	Waves int
	// ReplicaImpact is the fraction of moved replicas per deployment,
	// averaged with each deployment weighted by its pod count.
	ReplicaImpact float64
}

// calcDisruption scores the moved pods against their owning deployments.
func calcDisruption(objects []state.Object, moved []string) Disruption {
	if len(moved) == 0 {
		return Disruption{}
	}

	owner := map[string]string{}
	total := map[string]int{}
	for _, p := range state.Pods(objects) {
		if p.DeploymentName == "" {
			continue
		}
		owner[p.Name()] = p.DeploymentName
		total[p.DeploymentName]++
	}

	perDeployment := map[string]int{}
	for _, name := range moved {
		if d, ok := owner[name]; ok {
			perDeployment[d]++
		}
	}

	d := Disruption{Waves: 1}
	for _, n := range perDeployment {
		if waves := (n + maxUnavailable - 1) / maxUnavailable; waves > d.Waves {
			d.Waves = waves
		}
	}

	var movedReplicas, replicas int
	for name, count := range total {
		movedReplicas += perDeployment[name]
		replicas += count
	}
	d.ReplicaImpact = ratio(int64(movedReplicas), int64(replicas))
	return d
}
