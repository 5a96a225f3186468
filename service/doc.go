// Package service is the high-level recording facade. It maps named
// telemetry calls onto the summary builder and the async event writer,
// and keeps the small sidecar state (text-tag registry) that the
// visualization side expects.
package service
