package orchestrator

import (
	"log/slog"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/attributes"
	"github.com/dargueta/rompatch/games"
	"github.com/dargueta/rompatch/ppf"
)

// Config holds the options of one patch run.
type Config struct {
	// SourcePath is the image to patch. It's only ever opened read-only.
	SourcePath string
	// OutputPath receives the patched copy. An existing file is overwritten.
	OutputPath string
	Target     games.Target

	// BasePatch, if set, is applied to the fresh copy before any team is
	// written, e.g. a translation patch.
	BasePatch        *ppf.Patch
	BasePatchOptions ppf.ApplyOptions

	// Pins assigns teams to specific slots. Keys are team names, values are
	// slot references as accepted by [games.ParseSlot].
	Pins map[string]string

	// Mapper rates players that come without ratings. It defaults to a mapper
	// on the target's rating scale.
	Mapper *attributes.Mapper

	// SkipImageCheck bypasses [games.Target.CheckImage].
	SkipImageCheck bool
	// SectorSize is the caching granularity of the output image. Zero means
	// [image.DefaultSectorSize].
	SectorSize uint

	Logger   *slog.Logger
	Progress rompatch.ProgressFunc
}
