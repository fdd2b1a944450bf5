// Custodian is a data retention and disposition scheduling engine.
//
// It keeps retention policies for governed data, works out when each policy
// is due, and disposes of (deletes or archives) the records its rule has
// expired, while honoring:
//   - Legal holds that block every disposition of a policy
//   - Approval gates that turn scheduled runs into dry runs until approved
//   - An append-only execution ledger with per-policy statistics
//
// Usage:
//
//	# Start the scheduler with metrics and health endpoints
//	custodian run --config /etc/custodian/config.yaml
//
//	# Apply policy definition files
//	custodian sync policies/
//
//	# Put a policy under legal hold
//	custodian hold apply mail-7y --name "Case 12" --by legal@example.com
//
//	# Approve a gated disposition and run it
//	custodian approve mail-7y --approver alice --execute-now
package main

import "os"

func main() {
	os.Exit(Execute())
}
