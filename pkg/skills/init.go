package skills

import (
	"context"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/spf13/viper"
)

// Initialize builds the startup catalog from configuration:
//   - skills.enabled (default true) turns discovery off entirely
//   - skills.dirs adds directories after the default ones
//   - skills.allowed restricts the catalog to the listed names
//
// Problems with individual skills are logged and do not fail startup.
func Initialize(ctx context.Context) (*Snapshot, *Report, error) {
	registry := NewRegistry()

	if viper.IsSet("skills.enabled") && !viper.GetBool("skills.enabled") {
		logger.G(ctx).Debug("skills disabled by configuration")
		return registry.Snapshot(), &Report{}, nil
	}

	discovery, err := NewDiscovery(
		WithDefaultDirs(),
		WithExtraDirs(viper.GetStringSlice("skills.dirs")...),
		WithAllowlist(viper.GetStringSlice("skills.allowed")...),
	)
	if err != nil {
		return nil, nil, err
	}

	report := discovery.Populate(ctx, registry)
	logger.G(ctx).WithField("registered", len(report.Registered)).
		WithField("shadowed", len(report.Shadowed)).
		WithField("problems", len(report.Problems)).
		Debug("skill catalog initialized")

	return registry.Snapshot(), report, nil
}
