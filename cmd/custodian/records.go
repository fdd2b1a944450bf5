package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention/datastore"
)

const importBatchSize = 500

var recordsFlags struct {
	quiet bool
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and load the SQLite record store",
	Long: `Inspect and load the SQLite record store that policies dispose of.

These commands need datastore.type: sqlite.`,
}

var recordsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import records from a JSON file",
	Long: `Import records into the record store. The file holds a stream of JSON
objects (one per line or a plain sequence), each with at least id,
category, source and created_at. Existing records with the same id are
replaced.

Example record:
  {"id": "msg-1", "category": "mail", "source": "exchange",
   "tags": {"department": "finance"}, "size": 2048,
   "created_at": "2017-03-01T09:00:00Z"}

Examples:
  custodian records import records.jsonl
  custodian records import - < records.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: importRecords,
}

var recordsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of records in the store",
	Args:  cobra.NoArgs,
	RunE:  countRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsImportCmd, recordsCountCmd)

	recordsImportCmd.Flags().BoolVarP(&recordsFlags.quiet, "quiet", "q", false, "do not report progress")
}

// decodeRecords reads a stream of JSON records.
func decodeRecords(r io.Reader) ([]*datastore.Record, error) {
	dec := json.NewDecoder(r)
	var records []*datastore.Record
	for {
		var rec datastore.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("record %d: id is required", len(records)+1)
		}
		if rec.CreatedAt.IsZero() {
			return nil, fmt.Errorf("record %s: created_at is required", rec.ID)
		}
		records = append(records, &rec)
	}
}

func recordStore(a *app) (*datastore.SQLiteStore, error) {
	if a.records == nil {
		return nil, cli.NewConfigError("datastore.type", "record commands need the sqlite record store")
	}
	return a.records, nil
}

func importRecords(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		defer f.Close()
		in = f
	}

	records, err := decodeRecords(in)
	if err != nil {
		return cli.NewCommandError(cmd.CommandPath(), err)
	}

	return withApp(cmd, func(a *app) error {
		store, err := recordStore(a)
		if err != nil {
			return err
		}

		var progressOut io.Writer = cmd.ErrOrStderr()
		if recordsFlags.quiet {
			progressOut = io.Discard
		}
		progress := cli.NewProgress(progressOut, "Importing", "records")
		progress.Start(int64(len(records)))

		for start := 0; start < len(records); start += importBatchSize {
			end := min(start+importBatchSize, len(records))
			if err := store.Put(cmd.Context(), records[start:end]...); err != nil {
				progress.Fail(err)
				return cli.NewCommandError(cmd.CommandPath(), fmt.Errorf("after %d records: %w", start, err))
			}
			progress.Add(int64(end - start))
		}
		progress.Done()

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d records\n", len(records))
		return nil
	})
}

func countRecords(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		store, err := recordStore(a)
		if err != nil {
			return err
		}
		n, err := store.Count(cmd.Context())
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
}
