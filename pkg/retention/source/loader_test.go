package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/retention"
)

const mailDefinition = `
id: mail-7y
name: Mail retention
owner_id: legal
scope:
  data_categories: [mail]
retention:
  duration: 7
  unit: years
disposition:
  action: archive
  archive_location: cold/mail
schedule:
  frequency: monthly
  day_of_month: 1
  time: "03:00"
status: active
`

const listDefinition = `
policies:
  - id: logs-90d
    name: Application logs
    owner_id: platform
    scope:
      data_categories: [logs]
    retention:
      duration: 90
  - id: tmp-7d
    name: Scratch files
    owner_id: platform
    retention:
      duration: 7
    status: active
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantIDs []string
		wantErr bool
	}{
		{name: "single policy", content: mailDefinition, wantIDs: []string{"mail-7y"}},
		{name: "policies list", content: listDefinition, wantIDs: []string{"logs-90d", "tmp-7d"}},
		{
			name:    "multiple documents",
			content: mailDefinition + "\n---\n" + listDefinition,
			wantIDs: []string{"mail-7y", "logs-90d", "tmp-7d"},
		},
		{name: "empty file", content: "", wantIDs: nil},
		{name: "malformed yaml", content: "id: [unclosed", wantErr: true},
	}

	loader := NewLoader(nil)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.Repeat("x", i+1)+".yaml", tt.content)

			defs, err := loader.LoadFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(defs) != len(tt.wantIDs) {
				t.Fatalf("got %d definitions, want %d", len(defs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if defs[i].ID != id {
					t.Errorf("defs[%d].ID = %q, want %q", i, defs[i].ID, id)
				}
			}
		})
	}
}

func TestLoader_LoadFileAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "list.yaml", listDefinition)

	defs, err := NewLoader(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	logs := defs[0]
	if logs.Rule.Unit != retention.UnitDays || logs.Disposition.Action != retention.ActionDelete {
		t.Errorf("defaults not applied: unit %q action %q", logs.Rule.Unit, logs.Disposition.Action)
	}
	if logs.Status != retention.StatusDraft {
		t.Errorf("Status = %q, want draft", logs.Status)
	}
	if defs[1].Status != retention.StatusActive {
		t.Errorf("explicit status lost: %q", defs[1].Status)
	}
}

func TestLoader_InvalidDefinitions(t *testing.T) {
	content := `
policies:
  - name: no id
    owner_id: ops
    retention: {duration: 1}
  - id: bad-rule
    name: Bad rule
    owner_id: ops
    retention: {duration: 0}
  - id: good
    name: Good
    owner_id: ops
    retention: {duration: 1}
  - id: good
    name: Duplicate
    owner_id: ops
    retention: {duration: 2}
`
	path := writeFile(t, t.TempDir(), "mixed.yaml", content)

	defs, err := NewLoader(nil).LoadFile(path)
	if len(defs) != 1 || defs[0].ID != "good" || defs[0].Name != "Good" {
		t.Fatalf("defs = %+v, want only the first good definition", defs)
	}

	var list *ErrorList
	if !errors.As(err, &list) || len(list.Errors) != 3 {
		t.Fatalf("error = %v, want 3 collected errors", err)
	}
	var verr *retention.ValidationError
	if !errors.As(err, &verr) {
		t.Error("expected a ValidationError for the zero duration")
	}
}

func TestLoader_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(&LoaderConfig{MaxFileSize: 16, Extensions: []string{".yaml"}})

	big := writeFile(t, dir, "big.yaml", mailDefinition)
	invalid := writeFile(t, dir, "bin.yaml", "\xff\xfe")

	for name, path := range map[string]string{
		"missing":   filepath.Join(dir, "missing.yaml"),
		"directory": dir,
		"too large": big,
		"bad utf-8": invalid,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loader.LoadFile(path)
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("error = %v, want LoadError", err)
			}
		})
	}
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a-mail.yaml", mailDefinition)
	writeFile(t, dir, "nested/b-list.yml", listDefinition)
	writeFile(t, dir, "c-dup.yaml", strings.Replace(mailDefinition, "Mail retention", "Shadow", 1))
	writeFile(t, dir, ".hidden.yaml", "id: [broken")
	writeFile(t, dir, ".git/config.yaml", "id: [broken")
	writeFile(t, dir, "README.md", "# not a definition")

	defs, err := NewLoader(nil).LoadDir(dir)

	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	if got := strings.Join(ids, ","); got != "mail-7y,logs-90d,tmp-7d" {
		t.Errorf("ids = %s", got)
	}
	if defs[0].Name != "Mail retention" {
		t.Errorf("first definition in lexical order should win, got %q", defs[0].Name)
	}

	var derr *DefinitionError
	if !errors.As(err, &derr) || derr.PolicyID != "mail-7y" {
		t.Fatalf("error = %v, want a duplicate id error for mail-7y", err)
	}
}

func TestLoader_LoadDirMissing(t *testing.T) {
	_, err := NewLoader(nil).LoadDir(filepath.Join(t.TempDir(), "nope"))
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want LoadError", err)
	}
}
