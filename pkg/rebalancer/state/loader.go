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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/sets"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes/scheme"
	resourcehelper "k8s.io/component-helpers/resource"
	"k8s.io/component-helpers/scheduling/corev1/nodeaffinity"
	"k8s.io/klog/v2"
)

// FileSource loads a YAML or JSON cluster dump, as produced by
// `kubectl get nodes,pods,deployments -A -o yaml`. Multi document streams
// and v1.List wrappers are both accepted.
type FileSource struct {
	Path string
}

var _ Source = &FileSource{}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]Object, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	objects, err := Decode(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", s.Path, err)
	}
	return objects, nil
}

// Decode converts a Kubernetes object stream into cluster objects.
func Decode(ctx context.Context, r io.Reader) ([]Object, error) {
	logger := klog.FromContext(ctx)
	c := &collector{logger: logger}

	decoder := utilyaml.NewYAMLOrJSONDecoder(r, 4096)
	for {
		var raw runtime.RawExtension
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if len(raw.Raw) == 0 {
			continue
		}
		if err := c.add(raw.Raw); err != nil {
			return nil, err
		}
	}

	objects, err := c.build()
	if err != nil {
		return nil, err
	}
	logger.V(2).Info("Decoded snapshot", "nodes", len(c.nodes), "pods", len(c.pods), "deployments", len(c.deployments))
	return Clean(ctx, objects), nil
}

type collector struct {
	logger      klog.Logger
	nodes       []*corev1.Node
	pods        []*corev1.Pod
	deployments []*appsv1.Deployment
}

func (c *collector) add(data []byte) error {
	obj, gvk, err := scheme.Codecs.UniversalDeserializer().Decode(data, nil, nil)
	if err != nil {
		return err
	}
	switch o := obj.(type) {
	case *corev1.List:
		for _, item := range o.Items {
			if err := c.add(item.Raw); err != nil {
				return err
			}
		}
	case *corev1.Node:
		c.nodes = append(c.nodes, o)
	case *corev1.Pod:
		if o.Status.Phase == corev1.PodSucceeded || o.Status.Phase == corev1.PodFailed {
			c.logger.V(3).Info("Skipping terminated pod", "pod", klog.KObj(o))
			return nil
		}
		c.pods = append(c.pods, o)
	case *appsv1.Deployment:
		c.deployments = append(c.deployments, o)
	default:
		c.logger.V(3).Info("Ignoring object", "kind", gvk.Kind)
	}
	return nil
}

func (c *collector) build() ([]Object, error) {
	names := NewNameGenerator()
	var objects []Object

	for _, n := range c.nodes {
		if n.Name == "" {
			n.Name = names.Next("node")
		}
		objects = append(objects, convertNode(n))
	}

	deployments := map[string]*Deployment{}
	synthesized := map[string]bool{}
	counted := sets.New[string]()
	for _, d := range c.deployments {
		dep := &Deployment{MetadataName: d.Name, Namespace: d.Namespace, Replicas: 1}
		if d.Spec.Replicas != nil {
			dep.Replicas = *d.Spec.Replicas
		}
		deployments[dep.Name()] = dep
		objects = append(objects, dep)
	}

	for _, p := range c.pods {
		if p.Name == "" {
			prefix := strings.TrimSuffix(p.GenerateName, "-")
			if prefix == "" {
				prefix = "pod"
			}
			p.Name = names.Next(prefix)
		}
		pod := convertPod(p)
		if pod.DeploymentName == "" && !pod.DaemonSet {
			name, err := c.matchDeployment(p)
			if err != nil {
				return nil, err
			}
			pod.DeploymentName = name
		}
		if pod.DeploymentName != "" {
			if _, ok := deployments[pod.DeploymentName]; !ok {
				// Pods seen without their Deployment object; count replicas from the pods.
				dep := &Deployment{MetadataName: strings.TrimPrefix(pod.DeploymentName, p.Namespace+"/"), Namespace: p.Namespace}
				deployments[pod.DeploymentName] = dep
				synthesized[pod.DeploymentName] = true
				objects = append(objects, dep)
			}
			// Duplicates are dropped by Clean; count each pod once.
			if synthesized[pod.DeploymentName] && !counted.Has(pod.Name()) {
				counted.Insert(pod.Name())
				deployments[pod.DeploymentName].Replicas++
			}
		}
		eligible, err := c.eligibleNodes(p)
		if err != nil {
			return nil, err
		}
		pod.EligibleNodes = eligible
		objects = append(objects, pod)
	}

	objects = append(objects, &GlobalVar{MetadataName: GlobalVarName})
	return objects, nil
}

// matchDeployment resolves ownership by label selector for pods that carry
// no usable owner reference.
func (c *collector) matchDeployment(p *corev1.Pod) (string, error) {
	for _, d := range c.deployments {
		if d.Namespace != p.Namespace || d.Spec.Selector == nil {
			continue
		}
		selector, err := metav1.LabelSelectorAsSelector(d.Spec.Selector)
		if err != nil {
			return "", fmt.Errorf("deployment %s/%s: %w", d.Namespace, d.Name, err)
		}
		if !selector.Empty() && selector.Matches(labels.Set(p.Labels)) {
			return qualify(d.Namespace, d.Name), nil
		}
	}
	return "", nil
}

// eligibleNodes returns nil when the pod has no node constraints.
func (c *collector) eligibleNodes(p *corev1.Pod) ([]string, error) {
	if len(p.Spec.NodeSelector) == 0 && (p.Spec.Affinity == nil || p.Spec.Affinity.NodeAffinity == nil) {
		return nil, nil
	}
	required := nodeaffinity.GetRequiredNodeAffinity(p)
	eligible := []string{}
	for _, n := range c.nodes {
		ok, err := required.Match(n)
		if err != nil {
			return nil, fmt.Errorf("pod %s: %w", klog.KObj(p), err)
		}
		if ok {
			eligible = append(eligible, n.Name)
		}
	}
	return eligible, nil
}

func convertNode(n *corev1.Node) *Node {
	capacity := n.Status.Allocatable
	if len(capacity) == 0 {
		capacity = n.Status.Capacity
	}
	return &Node{
		MetadataName:  n.Name,
		Labels:        n.Labels,
		Unschedulable: n.Spec.Unschedulable,
		Status:        NodeActive,
		Capacity: Resources{
			CPU:    capacity.Cpu().String(),
			Memory: capacity.Memory().String(),
		},
	}
}

func convertPod(p *corev1.Pod) *Pod {
	requests := resourcehelper.PodRequests(defaultRequestsFromLimits(p), resourcehelper.PodResourcesOptions{})
	pod := &Pod{
		MetadataName: p.Name,
		Namespace:    p.Namespace,
		NodeName:     p.Spec.NodeName,
		Requests: Resources{
			CPU:    requests.Cpu().String(),
			Memory: requests.Memory().String(),
		},
	}
	for _, ref := range p.OwnerReferences {
		switch ref.Kind {
		case "DaemonSet":
			pod.DaemonSet = true
		case "ReplicaSet":
			hash := p.Labels[appsv1.DefaultDeploymentUniqueLabelKey]
			if hash != "" && strings.HasSuffix(ref.Name, "-"+hash) {
				pod.DeploymentName = qualify(p.Namespace, strings.TrimSuffix(ref.Name, "-"+hash))
			}
		}
	}
	return pod
}

// defaultRequestsFromLimits mirrors API server defaulting: a container with
// a limit and no request requests its limit.
func defaultRequestsFromLimits(p *corev1.Pod) *corev1.Pod {
	out := p.DeepCopy()
	fill := func(containers []corev1.Container) {
		for i := range containers {
			c := &containers[i]
			for name, limit := range c.Resources.Limits {
				if _, ok := c.Resources.Requests[name]; ok {
					continue
				}
				if c.Resources.Requests == nil {
					c.Resources.Requests = corev1.ResourceList{}
				}
				c.Resources.Requests[name] = limit.DeepCopy()
			}
		}
	}
	fill(out.Spec.InitContainers)
	fill(out.Spec.Containers)
	return out
}
