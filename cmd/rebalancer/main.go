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
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/component-base/logs"
	"k8s.io/klog/v2"

	"sigs.k8s.io/cluster-rebalancer/cmd/rebalancer/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd, opts := app.NewRebalancerCommand(os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		klog.Background().Error(err, "Rebalancer run failed", "artifacts", opts.Artifacts())
	}
	stop()
	logs.FlushLogs()

	os.Exit(app.ExitCode(opts.Artifacts()))
}
