// Package server runs the gin HTTP server behind an h2c handler with the
// service middleware stack: recovery, request ids, tracing, metrics,
// request logging, CORS, body size limits and per-client rate limiting.
//
//	srv := server.New(cfg, log)
//	srv.ApplyMiddleware(metrics)
//	srv.RegisterDefaultEndpoints("captiond", checkers...)
//	api.Register(srv.GinEngine().Group("/api"), handlers)
//	_ = srv.Start(ctx)
package server
