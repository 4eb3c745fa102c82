// Package server exposes a running monitor over HTTP.
//
// The server provides a live feed of decoded frames over WebSocket and
// read-only JSON views of the statistics aggregator and history ring.
//
// # Endpoints
//
//	GET /ws       WebSocket live feed, one JSON event per text message
//	GET /stats    Current statistics snapshot
//	GET /history  Recent frames, oldest first (?n= limits the count)
//	GET /metrics  Prometheus exposition (when a metrics handler is supplied)
//	GET /healthz  Liveness probe
//
// # Live Feed
//
// Every decoded frame is broadcast as:
//
//	{"type":"frame","timestamp_us":1500,"id":1409,"dlc":2,"data":"AA BB",
//	 "flags":0,"category":"SDO_TX","node":1}
//
// Dropped packet attempts are broadcast as:
//
//	{"type":"error","kind":"bad_magic","message":"..."}
//
// Each client has a bounded send queue. A client that falls behind is
// disconnected rather than stalling the decode loop.
//
// # Usage Example
//
//	srv := server.New(&server.Config{Listen: ":8080"}, server.Sources{
//	    Stats:   agg,
//	    History: hist,
//	    Metrics: exporter.Handler(),
//	})
//	mon.AddObserver(srv)
//
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Shutdown(context.Background())
//
// # Thread Safety
//
// The observer methods are called from the monitor goroutine and never
// block. HTTP handlers read the aggregator and history under their own
// locks.
package server
