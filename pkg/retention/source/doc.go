// Package source keeps retention policies in step with YAML definition
// files.
//
// A Loader reads and validates definitions, a Syncer applies them to the
// engine (create by id, or a typed update of the sections that changed),
// and a Watcher re-runs the sync when files change:
//
//	syncer := source.NewSyncer(nil, eng)
//	if _, err := syncer.SyncDir(ctx, cfg.Policies.Dir); err != nil {
//		logger.Warn("some policy definitions were not applied", "error", err)
//	}
//
//	w, err := source.NewWatcher(source.WatcherConfig{Dir: cfg.Policies.Dir, SkipHidden: true})
//	go w.Watch(ctx, func(ctx context.Context) error {
//		_, err := syncer.SyncDir(ctx, cfg.Policies.Dir)
//		return err
//	})
package source
