// Package eventfile implements the append-only telemetry log: one session
// file at a time, framed records with CRC validation, and an asynchronous
// writer that decouples producers from the file through a bounded queue.
package eventfile
