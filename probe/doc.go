// Package probe serves liveness, readiness and status endpoints for
// orchestrators that poll over HTTP instead of listening on a supervisor
// channel.
//
//	GET /livez   200 while the process can serve HTTP
//	GET /readyz  200 once ready, 503 before ready and once shutdown starts
//	GET /status  shutdown phase, readiness and component health
//
// The server is a component.Component, so a bootstrap.App starts it with
// the other components and stops it during the shutdown cleanup.
package probe
