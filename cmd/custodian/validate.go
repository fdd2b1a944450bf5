package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file|dir]...",
	Short: "Validate configuration and policy definition files",
	Long: `Validate the configuration file and policy definition files.

Definition files are checked for YAML syntax, required fields, retention
rules, schedules and duplicate policy ids. Directories are searched
recursively for *.yaml and *.yml files, skipping hidden entries. Without
arguments the configured policies.dir is validated.

Examples:
  # Validate config.yaml and the configured definition directory
  custodian validate

  # Validate specific files
  custodian validate policies/mail.yaml policies/logs.yaml

  # JSON output for CI/CD
  custodian validate policies/ --format json`,
	RunE: validateDefinitions,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// FileResult is the validation result for a single definition file.
type FileResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Policies []string `json:"policies,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

type validationReport []FileResult

func (r validationReport) Header() []string {
	return []string{"FILE", "VALID", "POLICIES", "ERRORS"}
}

func (r validationReport) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, f := range r {
		rows = append(rows, []string{
			f.File, strconv.FormatBool(f.Valid),
			orDash(strings.Join(f.Policies, ",")), orDash(strings.Join(f.Errors, "; ")),
		})
	}
	return rows
}

func validateDefinitions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "✓ Configuration valid")

	paths := args
	if len(paths) == 0 {
		if cfg.Policies.Dir == "" {
			return nil
		}
		paths = []string{cfg.Policies.Dir}
	}

	files, err := definitionFiles(paths)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	if len(files) == 0 {
		return cli.NewCommandError("validate", errors.New("no policy definition files found"))
	}

	report := validateFiles(source.NewLoader(nil), files)
	if err := render(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	invalid := 0
	for _, r := range report {
		if !r.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("%d of %d definition files are invalid", invalid, len(report)))
	}
	return nil
}

// validateFiles loads each file and reports its policies and errors. A
// policy id already defined by an earlier file is an error in the later one.
func validateFiles(loader *source.Loader, files []string) validationReport {
	seen := make(map[string]string)
	report := make(validationReport, 0, len(files))

	for _, file := range files {
		result := FileResult{File: file}

		defs, err := loader.LoadFile(file)
		result.Errors = append(result.Errors, errorMessages(err)...)
		for _, def := range defs {
			if first, dup := seen[def.ID]; dup {
				result.Errors = append(result.Errors, fmt.Sprintf("policy %s already defined in %s", def.ID, first))
				continue
			}
			seen[def.ID] = file
			result.Policies = append(result.Policies, def.ID)
		}

		result.Valid = len(result.Errors) == 0
		report = append(report, result)
	}
	return report
}

func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var list *source.ErrorList
	if errors.As(err, &list) {
		msgs := make([]string, 0, len(list.Errors))
		for _, e := range list.Errors {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

// definitionFiles expands directories into their YAML files, in lexical
// order.
func definitionFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := strings.HasPrefix(d.Name(), ".") && p != path
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			switch strings.ToLower(filepath.Ext(p)) {
			case ".yaml", ".yml":
				if !hidden {
					files = append(files, p)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
