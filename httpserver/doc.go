/*
Package httpserver implements the HTTP API of the sponsorship service.

It exposes the treasury identity, per-identity sponsorship status, and the
zkLogin proof endpoint, plus the usual health and diagnostics endpoints.

Main features:

  • Treasury address and live balance queries
  • Sponsorship status per identity (limits, usage, remaining allowance)
  • zkLogin proof issuance through the external proving service
  • Health, readiness and drain endpoints for load balancer integration

API Endpoints:

  • GET /api/v1/treasury - Treasury address, balance and current epoch
  • GET /api/v1/sponsorship/{identity} - Sponsorship status for an identity
  • POST /api/v1/proof - Issue a zkLogin proof
  • GET /livez, /readyz, /drain, /undrain - Health and lifecycle
  • /debug - pprof endpoints when enabled

Error responses carry a specific status per the service error taxonomy:
missing or malformed request fields map to 400, quota exhaustion to 403,
upstream proving-service failures to the upstream status (502 when the
service is unreachable), and storage or configuration faults to 500.
*/
package httpserver
