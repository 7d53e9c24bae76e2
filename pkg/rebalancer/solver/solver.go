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

// Package solver defines the boundary between the optimizer and a placement
// solver, and ships a best-first search solver that honours it.
package solver

import (
	"context"
	"errors"
	"fmt"
)

// ErrCapacityInfeasible is returned, possibly wrapped, when no placement
// satisfies the requested hypotheses. Callers treat it as an expected outcome.
var ErrCapacityInfeasible = errors.New("capacity infeasible")

// Solver turns a scaled model plus goals into a command script.
// It returns nil, an error wrapping ErrCapacityInfeasible, or any other
// error, which callers must treat as fatal.
type Solver interface {
	Solve(ctx context.Context, model *Model, hypotheses []Hypothesis, actions []Action) ([]Command, error)
}

// Hypothesis is a named goal contributed by a policy.
type Hypothesis struct {
	Name  string
	Order int
	// Goal reports whether the state satisfies the hypothesis.
	Goal func(st *State) bool
	// Estimate optionally returns a lower bound on the MovePod and DrainNode
	// commands still needed. It must not count StartPod commands.
	Estimate func(st *State) int
	// Violated optionally reports that no successor of st can satisfy Goal.
	Violated func(st *State) bool
}

// Action is a planned scheduling primitive the solver may apply.
type Action interface {
	Name() string
	// Expand returns the states reachable from st with one command.
	Expand(st *State) []*State
}

// CommandType names the primitive a command applies.
type CommandType string

const (
	CommandStartPod  CommandType = "StartPod"
	CommandMovePod   CommandType = "MovePod"
	CommandDrainNode CommandType = "DrainNode"
)

// Command is one step of a solver script.
type Command struct {
	Type CommandType
	// Pod is the namespace qualified pod name.
	Pod       string
	Namespace string
	PodName   string
	From      string
	To        string
	Node      string
}

// Description is a one line human readable summary.
func (c Command) Description() string {
	switch c.Type {
	case CommandStartPod:
		return fmt.Sprintf("start pod %s on node %s", c.Pod, c.To)
	case CommandMovePod:
		return fmt.Sprintf("move pod %s from node %s to node %s", c.Pod, c.From, c.To)
	case CommandDrainNode:
		return fmt.Sprintf("drain node %s", c.Node)
	default:
		return string(c.Type)
	}
}

// Shell renders the command as idempotent shell lines.
func (c Command) Shell() []string {
	switch c.Type {
	case CommandStartPod:
		return []string{fmt.Sprintf("# pending pod %s is expected to land on %s", c.Pod, c.To)}
	case CommandMovePod:
		lines := []string{fmt.Sprintf("# move %s from %s to %s", c.Pod, c.From, c.To)}
		if c.Namespace != "" {
			return append(lines, fmt.Sprintf("kubectl -n %s delete pod %s --ignore-not-found", c.Namespace, c.PodName))
		}
		return append(lines, fmt.Sprintf("kubectl delete pod %s --ignore-not-found", c.PodName))
	case CommandDrainNode:
		return []string{
			fmt.Sprintf("kubectl cordon %s", c.Node),
			fmt.Sprintf("kubectl drain %s --ignore-daemonsets --delete-emptydir-data", c.Node),
		}
	default:
		return []string{"# " + c.Description()}
	}
}
