// Package config loads and validates custodian's YAML configuration.
//
// A Config is built in four steps, each overriding the last: built-in
// defaults (defaults.go), the YAML file, CUSTODIAN_* environment variables,
// then Validate, which reports every bad field at once as a
// ValidationError.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    return err
//	}
//
// An empty path skips the file and starts from defaults. LoadConfig reads
// the file without looking at the environment.
//
// Environment names are the upper-cased YAML path with a CUSTODIAN_ prefix,
// for example CUSTODIAN_ENGINE_AUTO_DISPOSE or CUSTODIAN_SECRETS_DIR.
// governance.api_key may hold a ${secret:name} reference, which is resolved
// through pkg/secrets when the governance client is built.
//
// Every command loads its own Config and hands it down; nothing is global.
//
// A small deployment:
//
//	engine:
//	  auto_dispose: true
//	  execution_timeout: 5m
//	scheduler:
//	  schedule: "*/5 * * * *"
//	  max_concurrency: 4
//	storage:
//	  backend: sqlite
//	  sqlite:
//	    path: data/policies.db
//	datastore:
//	  type: sqlite
//	  path: data/records.db
//	governance:
//	  enabled: true
//	  base_url: https://governance.example.com/api/v1
//	  api_key: ${secret:governance-api-key}
//	policies:
//	  dir: policies/
//	  watch: true
//	telemetry:
//	  metrics:
//	    enabled: true
package config
