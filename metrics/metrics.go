// Package metrics defines the recorder interface for gateway telemetry.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, d time.Duration, labels map[string]string)
}
