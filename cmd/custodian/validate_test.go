package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/retention/source"
)

func TestDefinitionFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", mailPolicy)
	writeFile(t, dir, "nested/a.YML", approvalPolicy)
	writeFile(t, dir, ".hidden.yaml", mailPolicy)
	writeFile(t, dir, ".git/c.yaml", mailPolicy)
	writeFile(t, dir, "notes.txt", "hello")
	single := writeFile(t, t.TempDir(), "single.yaml", mailPolicy)

	files, err := definitionFiles([]string{dir, single})
	if err != nil {
		t.Fatalf("definitionFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "b.yaml"), filepath.Join(dir, "nested/a.YML"), single}
	if strings.Join(files, "\n") != strings.Join(want, "\n") {
		t.Errorf("files = %v, want %v", files, want)
	}

	if _, err := definitionFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for a missing path")
	}
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.yaml", mailPolicy)
	dup := writeFile(t, dir, "b.yaml", strings.Replace(mailPolicy, "Mail retention", "Shadow", 1))
	bad := writeFile(t, dir, "c.yaml", "id: bad\nname: Bad\nowner_id: ops\nretention: {duration: 0}\n")
	broken := writeFile(t, dir, "d.yaml", "id: [unclosed")

	report := validateFiles(source.NewLoader(nil), []string{first, dup, bad, broken})
	if len(report) != 4 {
		t.Fatalf("got %d results, want 4", len(report))
	}

	if !report[0].Valid || len(report[0].Policies) != 1 || report[0].Policies[0] != "mail-1y" {
		t.Errorf("first file = %+v", report[0])
	}
	if report[1].Valid || len(report[1].Errors) != 1 || !strings.Contains(report[1].Errors[0], "already defined in "+first) {
		t.Errorf("duplicate file = %+v", report[1])
	}
	for _, r := range report[2:] {
		if r.Valid || len(r.Errors) == 0 || len(r.Policies) != 0 {
			t.Errorf("%s = %+v, want invalid", r.File, r)
		}
	}

	rows := report.Rows()
	if rows[0][1] != "true" || rows[0][3] != "-" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "policies:\n  dir: "+filepath.Join(dir, "policies")+"\n")
	writeFile(t, dir, "policies/mail.yaml", mailPolicy)

	out := mustExecute(t, cfg, "--format", "json", "validate")
	var report []FileResult
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(report) != 1 || !report[0].Valid {
		t.Errorf("report = %+v", report)
	}

	writeFile(t, dir, "policies/dup.yaml", mailPolicy)
	if _, err := execute(t, cfg, "validate"); err == nil {
		t.Error("expected an error for a duplicate policy id")
	}
}
