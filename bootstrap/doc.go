// Package bootstrap runs a service through its lifecycle: infrastructure
// components start first, configure callbacks then build the business layer
// on top of them, and components registered during configure (the reaper,
// the HTTP server) start last. Shutdown on SIGINT/SIGTERM stops everything in
// reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(storageComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.RegisterComponent(server.NewComponent(srv))
//	})
//	err = app.Run(ctx)
package bootstrap
