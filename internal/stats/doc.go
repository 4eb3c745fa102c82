// Package stats keeps running traffic statistics and a bounded history of
// decoded CAN frames.
//
// An Aggregator counts accepted packets, decoded frames, deframing errors by
// kind, frames per category and frames per node. A History retains the most
// recent frames in arrival order, evicting the oldest once full.
//
// Both types are safe for concurrent use: the monitor loop is the only
// writer, while the HTTP surfaces read snapshots from other goroutines.
package stats
