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

	"k8s.io/klog/v2"
)

// Source produces a fresh copy of the cluster snapshot on every call.
type Source interface {
	Load(ctx context.Context) ([]Object, error)
}

// StaticSource serves a fixed object list.
type StaticSource struct {
	objects []Object
}

var _ Source = &StaticSource{}

func NewStaticSource(objects ...Object) *StaticSource {
	return &StaticSource{objects: objects}
}

func (s *StaticSource) Load(ctx context.Context) ([]Object, error) {
	return Clean(ctx, DeepCopy(s.objects)), nil
}

// Clean drops duplicate entries, logging each one. Duplicates mean the
// producer of the snapshot emitted the same object twice.
func Clean(ctx context.Context, objects []Object) []Object {
	dups := FindDuplicates(objects)
	if len(dups) == 0 {
		return objects
	}
	logger := klog.FromContext(ctx)
	for _, dup := range dups {
		logger.Info("Duplicate object in snapshot, keeping first occurrence", "kind", dup.Kind(), "name", dup.Name())
	}
	return Deduplicate(objects)
}
