/*
Package cli provides command-line interface utilities for Custodian.

The cli package includes output formatters, a progress reporter, error types,
and signal helpers used by the custodian command.

Output Formatting:

Commands print results as text, JSON or CSV. Tabular results implement
Table so the text and CSV formatters can lay them out as rows:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, policies); err != nil {
		return err
	}

Progress Reporting:

Bulk record imports report progress as they go:

	progress := cli.NewProgress(os.Stderr, "Importing", "records")
	progress.Start(total)
	for _, batch := range batches {
		if err := store.Put(ctx, batch...); err != nil {
			progress.Fail(err)
			return err
		}
		progress.Add(int64(len(batch)))
	}
	progress.Done()

Signal Handling:

NotifyShutdown cancels a context on SIGINT or SIGTERM and keeps the signal
as the cancellation cause:

	ctx, stop := cli.NotifyShutdown(context.Background())
	defer stop()
	<-ctx.Done()
	if sig := cli.ShutdownSignal(ctx); sig != nil {
		fmt.Println("received", sig)
	}
*/
package cli
