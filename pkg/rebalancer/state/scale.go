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
	"fmt"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/quantity"
)

// Scale fills the scaled and display values of every node capacity and pod
// request. Any codec error, overflow included, aborts with the object named.
func Scale(objects []Object, codec *quantity.Codec) error {
	for _, obj := range objects {
		var res *Resources
		switch o := obj.(type) {
		case *Node:
			res = &o.Capacity
		case *Pod:
			res = &o.Requests
		default:
			continue
		}
		if err := scaleResources(res, codec); err != nil {
			return fmt.Errorf("%s %s: %w", obj.Kind(), obj.Name(), err)
		}
	}
	return nil
}

func scaleResources(res *Resources, codec *quantity.Codec) error {
	cpu := res.CPU
	if cpu == "" {
		cpu = "0"
	}
	mem := res.Memory
	if mem == "" {
		mem = "0"
	}

	var err error
	if res.ScaledCPU, err = codec.ToScaled(cpu, quantity.CPU); err != nil {
		return err
	}
	if res.CPUMilli, err = quantity.ToNormalizedDisplay(cpu, quantity.CPU); err != nil {
		return err
	}
	if res.ScaledMemory, err = codec.ToScaled(mem, quantity.Memory); err != nil {
		return err
	}
	if res.MemoryMi, err = quantity.ToNormalizedDisplay(mem, quantity.Memory); err != nil {
		return err
	}
	return nil
}
