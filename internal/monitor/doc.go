// Package monitor drives the decode loop.
//
// A Monitor polls its byte source through a protocol.Deframer, classifies
// every decoded frame, feeds the statistics aggregator and history ring, and
// fans each event out to registered observers (printers, metrics, the live
// feed). Statistics reports are emitted by checking wall-clock time once
// per loop iteration; there is no background timer.
//
// The loop is single-threaded and cooperative: cancelling the context stops
// it after the current read returns, at which point a final report is
// emitted and the source is closed.
package monitor
