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

package solver

// StartPodAction places the first pending pod on any node that fits it.
// Only the first pending pod is expanded since start order does not change
// the final placement.
type StartPodAction struct{}

func (StartPodAction) Name() string { return string(CommandStartPod) }

func (StartPodAction) Expand(st *State) []*State {
	if st.pending == 0 {
		return nil
	}
	m := st.model
	pod := -1
	for i, n := range st.assign {
		if n < 0 {
			pod = i
			break
		}
	}
	p := m.Pods[pod]
	var out []*State
	for node := range m.Nodes {
		if !st.Fits(pod, node) {
			continue
		}
		next := st.next(Command{
			Type:      CommandStartPod,
			Pod:       p.Name,
			Namespace: p.Namespace,
			PodName:   p.PodName,
			To:        m.Nodes[node].Name,
		})
		next.place(pod, node)
		out = append(out, next)
	}
	return out
}

// MovePodAction moves a running pod to another node. The pod must belong
// to a deployment with more than one running replica and may move at most
// once per script.
type MovePodAction struct{}

func (MovePodAction) Name() string { return string(CommandMovePod) }

func (MovePodAction) Expand(st *State) []*State {
	m := st.model
	var out []*State
	for pod, from := range st.assign {
		p := m.Pods[pod]
		if from < 0 || p.DaemonSet || p.Deployment == "" || st.Moved(pod) {
			continue
		}
		if runningReplicas(st, p.Deployment) <= 1 {
			continue
		}
		for node := range m.Nodes {
			if node == from || !st.Fits(pod, node) {
				continue
			}
			next := st.next(Command{
				Type:      CommandMovePod,
				Pod:       p.Name,
				Namespace: p.Namespace,
				PodName:   p.PodName,
				From:      m.Nodes[from].Name,
				To:        m.Nodes[node].Name,
			})
			next.place(pod, node)
			out = append(out, next)
		}
	}
	return out
}

func runningReplicas(st *State, deployment string) int {
	count := 0
	for _, pod := range st.model.DeploymentPods(deployment) {
		if n := st.assign[pod]; n >= 0 && !st.drained[n] {
			count++
		}
	}
	return count
}

// DrainNodeAction retires a node once only DaemonSet pods remain on it.
// At least one node always stays active.
type DrainNodeAction struct{}

func (DrainNodeAction) Name() string { return string(CommandDrainNode) }

func (DrainNodeAction) Expand(st *State) []*State {
	m := st.model
	if st.drainedCount >= len(m.Nodes)-1 {
		return nil
	}
	var out []*State
	for node := range m.Nodes {
		if st.drained[node] || !drainable(st, node) {
			continue
		}
		next := st.next(Command{
			Type: CommandDrainNode,
			Node: m.Nodes[node].Name,
		})
		next.drain(node)
		out = append(out, next)
	}
	return out
}

func drainable(st *State, node int) bool {
	for pod, n := range st.assign {
		if n == node && !st.model.Pods[pod].DaemonSet {
			return false
		}
	}
	return true
}
