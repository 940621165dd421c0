// Package report writes a run's outcome as a Prometheus text exposition
// file, for pickup by a node_exporter textfile collector.
//
// The file is replaced atomically so a concurrent scrape never sees a
// partial write.
package report
