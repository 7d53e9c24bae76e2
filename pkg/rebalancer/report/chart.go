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
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// SummaryFile is the chart written next to the artifacts.
const SummaryFile = "summary.html"

// RenderSummary draws a bar chart comparing the baseline with every artifact:
// CPU and memory utilization in percent, and the availability risk.
func RenderSummary(w io.Writer, start Metric, artifacts []*Artifact) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("no artifacts to plot")
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Rebalance recommendations",
			Subtitle: fmt.Sprintf("snapshot %s", artifacts[0].Fingerprint),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "recommendation",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "value",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	labels := []string{"baseline"}
	cpu := []opts.BarData{{Value: round(start.NodeUtilization * 100)}}
	mem := []opts.BarData{{Value: round(start.MemoryUtilization * 100)}}
	risk := []opts.BarData{{Value: round(start.ProgressivePodSum)}}
	for _, a := range artifacts {
		labels = append(labels, "#"+strconv.Itoa(a.Index))
		cpu = append(cpu, opts.BarData{Value: round(a.Result.NodeUtilization * 100)})
		mem = append(mem, opts.BarData{Value: round(a.Result.MemoryUtilization * 100)})
		risk = append(risk, opts.BarData{Value: round(a.Result.ProgressivePodSum)})
	}

	bar.SetXAxis(labels).
		AddSeries("CPU utilization %", cpu).
		AddSeries("Memory utilization %", mem).
		AddSeries("Availability risk", risk).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
			charts.WithEmphasisOpts(opts.Emphasis{}),
		)

	return bar.Render(w)
}

// WriteSummary renders the chart into dir/summary.html.
func WriteSummary(dir string, start Metric, artifacts []*Artifact) (string, error) {
	filename := filepath.Join(dir, SummaryFile)
	f, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := RenderSummary(f, start, artifacts); err != nil {
		return "", err
	}
	return filename, nil
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
