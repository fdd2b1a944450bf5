// Package secrets resolves credentials referenced from the configuration.
//
// Configuration values may embed references of the form ${secret:name}.
// A Manager replaces each reference with the value returned by the first
// provider that has the secret:
//
//	governance:
//	  api_key: ${secret:governance-api-key}
//
// Two providers are bundled. EnvProvider reads environment variables
// (governance-api-key becomes CUSTODIAN_SECRET_GOVERNANCE_API_KEY with the
// default prefix) and FileProvider reads one file per secret from a
// directory, as mounted by Kubernetes secrets. Secret files must not be
// readable by group or others.
//
// Resolved values are cached for a configurable TTL. Secret names are
// redacted in log output and values are never logged.
package secrets
