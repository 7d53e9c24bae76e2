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

// Package state holds the in-memory cluster model the rebalancer works on.
// Objects refer to each other by name only; lookups go through ObjectsOfKind.
package state

// Kind tags a cluster object.
type Kind string

const (
	KindNode       Kind = "Node"
	KindPod        Kind = "Pod"
	KindDeployment Kind = "Deployment"
	KindGlobalVar  Kind = "GlobalVar"
)

// Kinds lists every kind the model understands.
var Kinds = []Kind{KindNode, KindPod, KindDeployment, KindGlobalVar}

// Object is a cluster object with an identity unique within its kind.
type Object interface {
	Name() string
	Kind() Kind
	DeepCopyObject() Object
}

// Resources carries a CPU/memory pair in three forms: the raw quantity
// strings from the snapshot, the solver scaled integers, and display values.
type Resources struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`

	ScaledCPU    int64 `json:"-"`
	ScaledMemory int64 `json:"-"`

	// CPUMilli is in millicores, MemoryMi in mebibytes.
	CPUMilli int64 `json:"-"`
	MemoryMi int64 `json:"-"`
}

// NodeStatus is the lifecycle state of a node inside one run.
type NodeStatus string

const (
	NodeActive  NodeStatus = "Active"
	NodeDrained NodeStatus = "Drained"
)

// Node is a machine pods can be placed on.
type Node struct {
	MetadataName  string
	Labels        map[string]string
	Capacity      Resources
	Unschedulable bool
	Status        NodeStatus
}

func (n *Node) Name() string { return n.MetadataName }
func (n *Node) Kind() Kind   { return KindNode }

// Active reports whether the node still takes part in placement.
func (n *Node) Active() bool {
	return n.Status != NodeDrained
}

func (n *Node) DeepCopyObject() Object {
	out := *n
	if n.Labels != nil {
		out.Labels = make(map[string]string, len(n.Labels))
		for k, v := range n.Labels {
			out.Labels[k] = v
		}
	}
	return &out
}

// Pod is a unit of placement. NodeName is empty while the pod is pending.
type Pod struct {
	MetadataName string
	Namespace    string
	NodeName     string
	// DeploymentName is the Name() of the owning Deployment, if any.
	DeploymentName string
	DaemonSet      bool
	Requests       Resources
	// EligibleNodes restricts target nodes. Nil means every node.
	EligibleNodes []string
}

// Name is the namespace qualified pod name.
func (p *Pod) Name() string { return qualify(p.Namespace, p.MetadataName) }
func (p *Pod) Kind() Kind   { return KindPod }

func (p *Pod) Pending() bool {
	return p.NodeName == ""
}

func (p *Pod) DeepCopyObject() Object {
	out := *p
	if p.EligibleNodes != nil {
		out.EligibleNodes = append([]string(nil), p.EligibleNodes...)
	}
	return &out
}

// Deployment groups replicated pods.
type Deployment struct {
	MetadataName string
	Namespace    string
	Replicas     int32
}

func (d *Deployment) Name() string { return qualify(d.Namespace, d.MetadataName) }
func (d *Deployment) Kind() Kind   { return KindDeployment }

func (d *Deployment) DeepCopyObject() Object {
	out := *d
	return &out
}

// GlobalVarName is the name of the per-run singleton.
const GlobalVarName = "globalvar"

// GlobalVar holds the free variables of one optimizer attempt.
type GlobalVar struct {
	MetadataName                  string
	TargetAmountOfRecommendations int
	TargetNodesDrainedLength      int
}

func (g *GlobalVar) Name() string { return g.MetadataName }
func (g *GlobalVar) Kind() Kind   { return KindGlobalVar }

func (g *GlobalVar) DeepCopyObject() Object {
	out := *g
	return &out
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "/" + name
}
