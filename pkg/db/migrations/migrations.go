// Package migrations holds the history schema. Versions are creation
// timestamps (YYYYMMDDHHmmss); append new migrations to All.
package migrations

import (
	"github.com/jingkaihe/skillkit/pkg/db"
)

// All returns every migration.
func All() []db.Migration {
	return []db.Migration{
		Migration20261012090000CreateSkillActivations(),
		Migration20261012090100CreateHookEvents(),
	}
}
