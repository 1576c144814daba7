// Package server provides the HTTP server for the Halyard site API.
//
// It uses gorilla/mux for routing. Every request passes through access
// logging, CORS, panic recovery and Prometheus instrumentation; individual
// routes opt into bearer authentication, the admin check or the public
// rate limiter.
//
// # Server Setup
//
//	srv := server.NewServer(cfg, db, log, server.Options{Host: "0.0.0.0", Port: "8080"})
//	srv.Authenticator = middleware.NewJWTAuthenticator(verifier, srv.UsersStore, cfg.IsAdminEmail, log)
//	srv.Blog = library
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Router: HTTP request router
//   - DB and the GORM backed stores
//   - Blog, News, Jobs: content, feed ingestion and report generation
//   - Payments, Calendar, Mailer: outbound integrations
//   - Authenticator and PublicLimiter
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//	endpoints.RegisterAll(srv)
package server
