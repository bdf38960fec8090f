package main

import (
	"context"
	"fmt"

	"github.com/jingkaihe/skillkit/pkg/history"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/selector"
	"github.com/jingkaihe/skillkit/pkg/session"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/spf13/viper"
)

// runtime bundles what most commands need: the startup catalog and the
// components reading from it.
type runtime struct {
	catalog  *skills.Snapshot
	loader   *skills.Loader
	selector *selector.Selector
	history  *history.Store
}

// newRuntime builds the catalog from configuration. Skills that fail to
// parse are reported as warnings and left out.
func newRuntime(ctx context.Context) (*runtime, error) {
	catalog, report, err := skills.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	for _, problem := range report.Problems {
		presenter.Warning(problem.Error())
	}
	for _, shadowed := range report.Shadowed {
		logger.G(ctx).WithField("skill", shadowed.Name).WithField("path", shadowed.Path).
			Debug("shadowed skill ignored")
	}

	return &runtime{
		catalog:  catalog,
		loader:   skills.NewLoader(catalog),
		selector: selector.New(catalog, selector.FromConfig()),
	}, nil
}

// openHistory attaches the history store when history.enabled is set. A
// store that cannot be opened is logged and skipped.
func (r *runtime) openHistory(ctx context.Context) {
	if !viper.GetBool("history.enabled") {
		return
	}
	store, err := history.Open(ctx, viper.GetString("history.path"))
	if err != nil {
		logger.G(ctx).WithError(err).Warn("history disabled, failed to open store")
		return
	}
	r.history = store
}

// newSession starts a session, recording activations when history is open.
func (r *runtime) newSession() *session.Session {
	var opts []session.Option
	if r.history != nil {
		opts = append(opts, session.WithRecorder(r.history))
	}
	return session.New(r.loader, opts...)
}

func (r *runtime) Close() {
	if r.history != nil {
		r.history.Close()
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:n-3]))
}
