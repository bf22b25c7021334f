// Package bootstrap runs a service through a fixed lifecycle: start the
// registered components, run configure callbacks, check readiness, print a
// startup summary, then either block until a signal (Run) or execute a
// single task (RunTask) before stopping everything in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(db)
//	_ = app.RegisterComponent(sched)
//	return app.Run(ctx)
package bootstrap
