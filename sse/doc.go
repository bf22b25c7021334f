// Package sse streams pipeline run progress to HTTP clients as
// Server-Sent Events.
//
// A Hub fans events out to connected clients. Each client subscribes with a
// topic pattern: "run:*" for every run or "run:<id>" for one. RunStream is a
// dag.Observer that publishes a "task" event per finished task and a "run"
// event when the run ends.
//
//	hub := sse.NewComponent(cfg, log)
//	deps.Observers = append(deps.Observers, sse.NewRunStream(hub.Hub()))
//	api.GET("/events", sse.Handler(hub.Hub(), cfg))
package sse
