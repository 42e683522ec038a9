/*
The sponsord command serves the campaign sponsorship and zkLogin
identity-bridge API.

It loads the treasury signing key and prover credential from the environment
(SPONSOR_TREASURY_KEY, SPONSOR_PROVER_TOKEN), opens the configured quota
store, and exposes the HTTP API together with a Prometheus metrics listener.

Usage:

	sponsord \
	  --prover-url https://prover.example.com/v1 \
	  --rpc-url https://fullnode.mainnet.sui.io:443 \
	  --quota-backend badger:///var/lib/sponsord/quota \
	  --max-campaigns 3 --max-responses 10 \
	  --listen-addr 0.0.0.0:8080 --metrics-addr 127.0.0.1:8090
*/
package main
