// Package api serves the admin backup and restore endpoints under
// /api/v1/admin, plus health checks and Prometheus metrics.
package api
