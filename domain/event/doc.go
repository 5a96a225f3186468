// Package event defines the telemetry event envelope and its wire encoding.
// An event pairs an opaque summary payload with a wall-clock timestamp and
// an optional step counter.
package event
