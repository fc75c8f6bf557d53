// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stress

import (
	"fmt"
	"io"
	"text/tabwriter"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// MetricPrefix prefixes every metric name in the Prometheus report.
const MetricPrefix = "lfstress_"

// WriteText writes results as an aligned table.
func WriteText(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tGOROUTINES\tATTEMPTS\tSUCCESSES\tREFUSALS\tELAPSED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%v\n", r.Scenario, r.Goroutines, r.Attempts, r.Successes, r.Refusals, r.Elapsed)
	}
	return tw.Flush()
}

type metricDesc struct {
	name  string
	help  string
	typ   dto.MetricType
	value func(Result) float64
}

var metricDescs = []metricDesc{
	{
		name:  "attempts_total",
		help:  "Operations tried.",
		typ:   dto.MetricType_COUNTER,
		value: func(r Result) float64 { return float64(r.Attempts) },
	},
	{
		name:  "successes_total",
		help:  "Operations that published, acquired or initialized.",
		typ:   dto.MetricType_COUNTER,
		value: func(r Result) float64 { return float64(r.Successes) },
	},
	{
		name:  "refusals_total",
		help:  "Operations refused without effect.",
		typ:   dto.MetricType_COUNTER,
		value: func(r Result) float64 { return float64(r.Refusals) },
	},
	{
		name:  "goroutines",
		help:  "Concurrent workers.",
		typ:   dto.MetricType_GAUGE,
		value: func(r Result) float64 { return float64(r.Goroutines) },
	},
	{
		name:  "elapsed_seconds",
		help:  "Wall time of the run.",
		typ:   dto.MetricType_GAUGE,
		value: func(r Result) float64 { return r.Elapsed.Seconds() },
	},
}

// MetricFamilies converts results into one metric family per measurement,
// with a "scenario" label per result.
func MetricFamilies(results []Result) []*dto.MetricFamily {
	families := make([]*dto.MetricFamily, 0, len(metricDescs))
	for _, d := range metricDescs {
		mf := &dto.MetricFamily{
			Name: proto.String(MetricPrefix + d.name),
			Help: proto.String(d.help),
			Type: d.typ.Enum(),
		}
		for _, r := range results {
			m := &dto.Metric{
				Label: []*dto.LabelPair{{
					Name:  proto.String("scenario"),
					Value: proto.String(r.Scenario),
				}},
			}
			v := d.value(r)
			switch d.typ {
			case dto.MetricType_COUNTER:
				m.Counter = &dto.Counter{Value: proto.Float64(v)}
			default:
				m.Gauge = &dto.Gauge{Value: proto.Float64(v)}
			}
			mf.Metric = append(mf.Metric, m)
		}
		families = append(families, mf)
	}
	return families
}

// WritePrometheus writes results in the Prometheus text exposition format.
func WritePrometheus(w io.Writer, results []Result) error {
	for _, mf := range MetricFamilies(results) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Write writes results in the named format, "text" or "prometheus".
func Write(w io.Writer, format string, results []Result) error {
	switch format {
	case "text", "":
		return WriteText(w, results)
	case "prometheus":
		return WritePrometheus(w, results)
	default:
		return fmt.Errorf("invalid report format %q, must be 'text' or 'prometheus'", format)
	}
}
