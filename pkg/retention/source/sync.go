package source

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"mercator-hq/custodian/pkg/retention"
)

// Target is the part of the engine a Syncer writes to. *engine.Engine
// implements it.
type Target interface {
	GetPolicy(ctx context.Context, id string) (*retention.Policy, error)
	CreatePolicy(ctx context.Context, p *retention.Policy) (*retention.Policy, error)
	UpdatePolicy(ctx context.Context, id string, u retention.PolicyUpdate) (*retention.Policy, error)
}

// Report lists what a sync did, by policy id.
type Report struct {
	Created   []string `json:"created"`
	Updated   []string `json:"updated"`
	Unchanged []string `json:"unchanged"`
	Failed    []string `json:"failed"`
}

// Syncer applies policy definition files to the engine. Definitions whose
// id is unknown are created; known ones receive a typed update carrying only
// the sections that differ, so an untouched file never reschedules a policy.
//
// Definitions own configuration only. Status, legal holds, approvals and the
// execution ledger are never changed by a sync, and policies whose files
// are removed are left as they are.
type Syncer struct {
	loader *Loader
	target Target
	logger *slog.Logger
}

// NewSyncer creates a syncer. A nil loader uses the default configuration.
func NewSyncer(loader *Loader, target Target) *Syncer {
	if loader == nil {
		loader = NewLoader(nil)
	}
	return &Syncer{
		loader: loader,
		target: target,
		logger: slog.Default().With("component", "retention.source"),
	}
}

// SyncDir loads dir and applies every definition that loaded. Load errors
// and apply errors are returned together; the report covers the rest.
func (s *Syncer) SyncDir(ctx context.Context, dir string) (*Report, error) {
	defs, loadErr := s.loader.LoadDir(dir)
	if len(defs) == 0 && loadErr != nil {
		return &Report{}, loadErr
	}

	report, applyErr := s.Apply(ctx, defs)

	errList := &ErrorList{}
	var loadList *ErrorList
	if errors.As(loadErr, &loadList) {
		errList.Errors = append(errList.Errors, loadList.Errors...)
	} else {
		errList.Add(loadErr)
	}
	var applyList *ErrorList
	if errors.As(applyErr, &applyList) {
		errList.Errors = append(errList.Errors, applyList.Errors...)
	} else {
		errList.Add(applyErr)
	}

	s.logger.InfoContext(ctx, "policy definitions synced",
		"dir", dir,
		"created", len(report.Created),
		"updated", len(report.Updated),
		"unchanged", len(report.Unchanged),
		"failed", len(report.Failed),
		"errors", len(errList.Errors),
	)
	return report, errList.ToError()
}

// Apply creates or updates one policy per definition.
func (s *Syncer) Apply(ctx context.Context, defs []*retention.Policy) (*Report, error) {
	report := &Report{}
	errList := &ErrorList{}

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			errList.Add(err)
			break
		}

		existing, err := s.target.GetPolicy(ctx, def.ID)
		switch {
		case errors.Is(err, retention.ErrNotFound):
			if _, err := s.target.CreatePolicy(ctx, def); err != nil {
				report.Failed = append(report.Failed, def.ID)
				errList.Add(&DefinitionError{PolicyID: def.ID, Cause: err})
				continue
			}
			report.Created = append(report.Created, def.ID)
			s.logger.InfoContext(ctx, "policy created from definition", "policy_id", def.ID)

		case err != nil:
			report.Failed = append(report.Failed, def.ID)
			errList.Add(&DefinitionError{PolicyID: def.ID, Cause: err})

		default:
			update := Diff(existing, def)
			if update.Empty() {
				report.Unchanged = append(report.Unchanged, def.ID)
				continue
			}
			if _, err := s.target.UpdatePolicy(ctx, def.ID, update); err != nil {
				report.Failed = append(report.Failed, def.ID)
				errList.Add(&DefinitionError{PolicyID: def.ID, Cause: err})
				continue
			}
			report.Updated = append(report.Updated, def.ID)
			s.logger.InfoContext(ctx, "policy updated from definition", "policy_id", def.ID)
		}
	}

	return report, errList.ToError()
}

// Diff returns the update that turns the configuration of existing into
// that of def. Only differing sections are set.
func Diff(existing, def *retention.Policy) retention.PolicyUpdate {
	full := retention.UpdateFromDefinition(def)
	var u retention.PolicyUpdate

	if existing.Name != def.Name {
		u.Name = full.Name
	}
	if existing.Description != def.Description {
		u.Description = full.Description
	}
	if !scopeEqual(existing.Scope, def.Scope) {
		u.Scope = full.Scope
	}
	if existing.Rule != def.Rule {
		u.Rule = full.Rule
	}
	if !dispositionEqual(existing.Disposition, def.Disposition) {
		u.Disposition = full.Disposition
	}
	if !complianceEqual(existing.Compliance, def.Compliance) {
		u.Compliance = full.Compliance
	}
	if scheduleChanged(existing.Schedule, def.Schedule) {
		u.Schedule = full.Schedule
	}
	return u
}

// The comparisons below treat nil and empty lists as equal; stored
// policies do not preserve the difference.

func scopeEqual(a, b retention.Scope) bool {
	return slices.Equal(a.DataCategories, b.DataCategories) &&
		slices.Equal(a.DataSources, b.DataSources) &&
		a.Classification == b.Classification &&
		a.Filter == b.Filter
}

func dispositionEqual(a, b retention.Disposition) bool {
	return a.Action == b.Action &&
		a.RequireApproval == b.RequireApproval &&
		slices.Equal(a.Approvers, b.Approvers) &&
		a.NotifyDaysBefore == b.NotifyDaysBefore &&
		a.ArchiveLocation == b.ArchiveLocation
}

func complianceEqual(a, b retention.Compliance) bool {
	return slices.Equal(a.Regulations, b.Regulations) &&
		a.LegalBasis == b.LegalBasis &&
		a.PolicyReference == b.PolicyReference
}

func scheduleChanged(a, b retention.Schedule) bool {
	return a.Frequency != b.Frequency ||
		a.Time != b.Time ||
		a.Timezone != b.Timezone ||
		!equalInt(a.DayOfWeek, b.DayOfWeek) ||
		!equalInt(a.DayOfMonth, b.DayOfMonth)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
