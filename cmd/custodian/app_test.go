package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/custodian/pkg/config"
)

func TestNewSecretManager(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "governance-api-key"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SECRET_GOVERNANCE_API_KEY", "from-env")
	t.Setenv("TEST_SECRET_OTHER_KEY", "other")

	cfg := config.NewDefault()
	cfg.Secrets.EnvPrefix = "TEST_SECRET_"
	cfg.Secrets.Dir = dir

	sm, err := newSecretManager(cfg)
	if err != nil {
		t.Fatalf("newSecretManager() error = %v", err)
	}
	got, err := sm.Resolve(context.Background(), "${secret:governance-api-key}/${secret:other-key}")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "from-file/other" {
		t.Errorf("Resolve() = %q, want the file to win over the environment", got)
	}

	cfg.Secrets.Dir = filepath.Join(dir, "missing")
	if _, err := newSecretManager(cfg); err == nil {
		t.Error("expected error for a missing secrets directory")
	}
}

func TestOpenApp_UnresolvedGovernanceKey(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Storage.Backend = "memory"
	cfg.Datastore.Type = "memory"
	cfg.Governance.Enabled = true
	cfg.Governance.BaseURL = "http://governance.invalid"
	cfg.Governance.APIKey = "${secret:custodian-test-missing-key}"

	if _, err := openApp(context.Background(), cfg, appOptions{}); err == nil {
		t.Fatal("expected error for an unresolved api key")
	}
}
