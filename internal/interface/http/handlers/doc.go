// Package handlers contains reusable HTTP building blocks shared by the API
// server: health checks, middleware and request validation.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddCheck("queue", handlers.NewPingCheck(queue))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Warn("health check failed", zap.String("message", status.Message))
//	}
//
// # Authentication
//
// Administrative routes are guarded by JWTAuth, which verifies HS256 bearer
// tokens minted by the session service:
//
//	auth := handlers.NewJWTAuth(secret, issuer)
//	r.With(auth.Middleware).Get("/enrollments", listEnrollments)
//
// # Validation
//
// Validator wraps go-playground/validator with English translations and JSON
// field names, so request DTOs report errors as "start_date is required".
package handlers
