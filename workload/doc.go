// Package workload runs pipeline commands inside a long-lived container,
// the way the dbt image is operated in production.
//
// Executor abstracts the container runtime; workload/docker registers the
// Docker Engine implementation. ContainerRunner adapts an Executor to the
// pipeline's command runner contract and Component manages its lifecycle.
//
//	import _ "github.com/tienminhktvn/dataops-project/workload/docker"
//
//	comp := workload.NewComponent(cfg, &docker.Config{}, log)
//	_ = comp.Start(ctx)
//	outcome, err := comp.Runner().Execute(ctx, "dbt run --select bronze")
package workload
