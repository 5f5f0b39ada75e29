// Package metrics emits custom metrics in the CloudWatch Embedded Metrics
// Format (EMF): one JSON object per line, written to a configurable sink.
// Any log shipper that understands EMF turns the lines into metrics; locally
// they are just structured log lines.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Namespace is the metric namespace used by every recorder in this module.
const Namespace = "NanoStudio"

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// emfDirective is the _aws metadata block required by EMF.
type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates dimensions, metrics and properties for a single
// flush. Create one per operation; it is not safe for concurrent use.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]any
	properties map[string]any
}

var (
	sinkMu  sync.Mutex
	sink    io.Writer = os.Stdout
	enabled           = true
	service string
)

// Configure sets where flushed documents go and whether they are written at
// all. The MCP server points this at stderr since stdout carries protocol
// frames.
func Configure(w io.Writer, on bool) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if w != nil {
		sink = w
	}
	enabled = on
}

// SetService sets the Service dimension added to every new recorder.
func SetService(name string) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	service = name
}

// New creates a Recorder for the given namespace.
func New(namespace string) *Recorder {
	r := &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]any),
		properties: make(map[string]any),
	}
	sinkMu.Lock()
	if service != "" {
		r.dimensions["Service"] = service
	}
	sinkMu.Unlock()
	return r
}

// Dimension adds an indexed dimension.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named value with a unit (see the Unit* constants).
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a non-metric, searchable field.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as a single JSON line. Recorders without any
// metric produce no output.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	metricDefs := make([]metricDef, 0, len(r.metrics))
	for _, m := range r.metrics {
		metricDefs = append(metricDefs, m)
	}
	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}

	doc := make(map[string]any, len(r.dimensions)+len(r.values)+len(r.properties)+1)
	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    metricDefs,
		}},
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal EMF metrics")
		return
	}

	sinkMu.Lock()
	defer sinkMu.Unlock()
	if !enabled {
		return
	}
	data = append(data, '\n')
	if _, err := sink.Write(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write EMF metrics")
	}
}
