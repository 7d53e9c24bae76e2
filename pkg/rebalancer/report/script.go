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
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
)

const scriptTemplate = `#!/bin/sh
# Rebalance recommendation #{{ .Index }}
# Snapshot fingerprint: {{ .Fingerprint }}
#
# Node utilization:  {{ percent .Start.NodeUtilization }} -> {{ percent .Result.NodeUtilization }}
# Availability risk: {{ risk .Start.ProgressivePodSum }} -> {{ risk .Result.ProgressivePodSum }}
#
# Pods moved:    {{ len .Result.MovedPods }}{{ with .Result.MovedPods }} ({{ join . }}){{ end }}
# Nodes drained: {{ len .Result.DrainedNodes }}{{ with .Result.DrainedNodes }} ({{ join . }}){{ end }}
# Waves:         {{ .Result.Disruption.Waves }}
# Solve time:    {{ .Result.RunTime }}
set -e
{{ range .Commands }}
{{ range .Shell }}{{ . }}
{{ end }}{{ end }}`

var scriptTmpl = template.Must(template.New("script").Funcs(template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
	"risk":    func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"join":    func(v []string) string { return strings.Join(v, ", ") },
}).Parse(scriptTemplate))

type scriptData struct {
	Index       int
	Fingerprint string
	Start       Metric
	Result      Metric
	Commands    []solver.Command
}

// GenerateScript renders the migration script of one successful
// combination. The output depends only on its arguments.
func GenerateScript(start, result Metric, script []solver.Command, index int, fingerprint string) (string, error) {
	var buf bytes.Buffer
	err := scriptTmpl.Execute(&buf, scriptData{
		Index:       index,
		Fingerprint: fingerprint,
		Start:       start,
		Result:      result,
		Commands:    script,
	})
	if err != nil {
		return "", fmt.Errorf("rendering script %d: %w", index, err)
	}
	return buf.String(), nil
}
