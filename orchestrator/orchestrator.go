// Package orchestrator runs a complete patch: it assigns teams to slots, copies
// the source image, optionally applies a base patch, writes every slot and
// verifies the result.
//
// Runs are single-threaded. Each slot is staged in the output image's sector
// cache and committed as a unit, so a failed or cancelled run leaves behind a
// prefix of fully written slots.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/attributes"
	"github.com/dargueta/rompatch/games"
	"github.com/dargueta/rompatch/image"
	"github.com/dargueta/rompatch/logging"
	"github.com/dargueta/rompatch/roster"
)

type slotJob struct {
	team rompatch.TeamRecord
	slot rompatch.SlotID
	plan *games.SlotPlan
}

type Orchestrator struct {
	config Config
	logger *slog.Logger
	state  State
	report *Report
}

// New checks a configuration and creates an orchestrator for one run.
func New(config Config) (*Orchestrator, error) {
	if config.Target == nil {
		return nil, rompatch.ErrInvalidArgument.WithMessage("no target given")
	}
	if config.SourcePath == "" || config.OutputPath == "" {
		return nil, rompatch.ErrInvalidArgument.WithMessage("source and output paths are required")
	}
	same, err := image.SameFile(config.SourcePath, config.OutputPath)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("output path %q is the source image", config.OutputPath))
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Orchestrator{config: config, logger: logger, state: Idle}, nil
}

// Run is shorthand for creating an orchestrator and running it once.
func Run(ctx context.Context, config Config, teams []rompatch.TeamRecord) (*Report, error) {
	o, err := New(config)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, teams)
}

// State gives the step the run is at.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(state State, message string) {
	o.state = state
	o.logger.Debug("state changed", "state", state.String())
	o.progress(0, 0, message)
}

func (o *Orchestrator) progress(step, total int, message string) {
	if o.config.Progress == nil {
		return
	}
	o.config.Progress(rompatch.Progress{
		State:   o.state.String(),
		Step:    step,
		Total:   total,
		Message: message,
	})
}

// warn records a non-fatal problem in the report, the log and the progress
// callback.
func (o *Orchestrator) warn(err error) {
	o.report.Warnings = append(o.report.Warnings, err)
	o.logger.Warn(err.Error(), "kind", rompatch.KindOf(err).String())
	o.progress(0, 0, err.Error())
}

func (o *Orchestrator) slotFailed(job *slotJob, err error) {
	err = fmt.Errorf("team %q in %s: %w", job.team.Name, job.slot, err)
	o.report.SlotErrors = multierror.Append(o.report.SlotErrors, err)
	o.logger.Error("slot not written", "slot", job.slot.String(), "error", err)
	o.progress(0, 0, err.Error())
}

// Run executes the patch. Fatal errors end the run in [Failed] and are
// returned; the report is returned either way, once the run has started.
// Non-fatal problems only appear in the report.
func (o *Orchestrator) Run(ctx context.Context, teams []rompatch.TeamRecord) (report *Report, err error) {
	if o.state != Idle {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("run already started, state is %s", o.state))
	}

	o.report = &Report{
		RunID:      uuid.NewString(),
		Target:     o.config.Target.Name(),
		SourcePath: o.config.SourcePath,
		OutputPath: o.config.OutputPath,
	}
	o.logger = o.logger.With("run_id", o.report.RunID)
	o.logger.Info(
		"starting patch run",
		"target", o.report.Target,
		"source", o.config.SourcePath,
		"output", o.config.OutputPath,
		"teams", len(teams))

	defer func() {
		if err != nil {
			o.setState(Failed, err.Error())
			o.logger.Error("patch run failed", "error", err)
		} else {
			o.setState(Done, "finished")
			o.logger.Info(
				"patch run finished",
				"slots", len(o.report.Assignments),
				"warnings", len(o.report.Warnings),
				"mismatches", o.report.Mismatches())
		}
		o.report.State = o.state
	}()

	o.setState(FetchingRoster, fmt.Sprintf("%d teams", len(teams)))
	if err = validateTeams(teams); err != nil {
		return o.report, err
	}

	o.setState(MappingSlots, "assigning slots")
	jobs, err := o.mapSlots(teams)
	if err != nil {
		return o.report, err
	}

	o.report.SourceDigestBefore, err = image.DigestFile(o.config.SourcePath)
	if err != nil {
		return o.report, err
	}

	source, err := os.Open(o.config.SourcePath)
	if err != nil {
		return o.report, rompatch.ErrIOFailed.Wrap(err)
	}
	defer source.Close()

	if !o.config.SkipImageCheck {
		info, statErr := source.Stat()
		if statErr != nil {
			return o.report, rompatch.ErrIOFailed.Wrap(statErr)
		}
		if err = o.config.Target.CheckImage(source, info.Size()); err != nil {
			return o.report, err
		}
	}

	img, err := image.CreateCopy(o.config.SourcePath, o.config.OutputPath, o.config.SectorSize)
	if err != nil {
		return o.report, err
	}
	defer func() {
		closeErr := img.Close()
		if err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	if o.config.BasePatch != nil {
		o.setState(ApplyingBasePatch, o.config.BasePatch.Description)
		if err = o.applyBasePatch(img); err != nil {
			return o.report, err
		}
	}

	o.setState(WritingRecords, fmt.Sprintf("%d slots", len(jobs)))
	written, err := o.writeSlots(ctx, img, jobs)
	if err != nil {
		return o.report, err
	}

	o.setState(Verifying, fmt.Sprintf("%d slots", len(written)))
	if err = o.verify(img, source, written); err != nil {
		return o.report, err
	}

	o.report.OutputDigest, err = img.Digest()
	if err != nil {
		return o.report, err
	}
	o.report.SourceDigestAfter, err = image.DigestFile(o.config.SourcePath)
	if err != nil {
		return o.report, err
	}
	if !o.report.SourceUntouched() {
		return o.report, rompatch.ErrIOFailed.WithMessage("source image changed during the run")
	}
	return o.report, nil
}

func validateTeams(teams []rompatch.TeamRecord) error {
	for i, team := range teams {
		if team.Name == "" {
			return rompatch.ErrMalformedInput.WithMessage(fmt.Sprintf("team %d has no name", i))
		}
		for j, player := range team.Players {
			if player.Name == "" {
				return rompatch.ErrMalformedInput.WithMessage(
					fmt.Sprintf("team %q: player %d has no name", team.Name, j))
			}
		}
	}
	return nil
}

// mapSlots assigns every team a slot, then fits and rates its roster. Pinned
// teams are placed first; the rest fill their pool in roster order.
func (o *Orchestrator) mapSlots(teams []rompatch.TeamRecord) ([]*slotJob, error) {
	target := o.config.Target
	allocators := make(map[string]*SlotAllocator)
	allocatorFor := func(poolName string) (*SlotAllocator, error) {
		pool, err := target.Pool(poolName)
		if err != nil {
			return nil, err
		}
		alloc, ok := allocators[pool.Name]
		if !ok {
			alloc = NewSlotAllocator(pool)
			allocators[pool.Name] = alloc
		}
		return alloc, nil
	}

	jobs := make([]*slotJob, len(teams))
	pinnedTeams := make(map[string]bool)
	for i := range teams {
		ref, ok := o.config.Pins[teams[i].Name]
		if !ok {
			continue
		}
		pinnedTeams[teams[i].Name] = true

		slot, err := games.ParseSlot(target, ref)
		if err != nil {
			return nil, fmt.Errorf("pin for team %q: %w", teams[i].Name, err)
		}
		alloc, err := allocatorFor(slot.Pool)
		if err != nil {
			return nil, err
		}
		if _, err = alloc.Reserve(slot.Index); err != nil {
			return nil, fmt.Errorf("pin for team %q: %w", teams[i].Name, err)
		}
		jobs[i] = &slotJob{slot: slot}
	}
	for name := range o.config.Pins {
		if !pinnedTeams[name] {
			o.warn(rompatch.ErrNotFound.WithMessage(
				fmt.Sprintf("pinned team %q isn't in the roster", name)))
		}
	}

	for i := range teams {
		if jobs[i] != nil {
			continue
		}
		poolName := teams[i].Pool
		if poolName == "" {
			poolName = target.DefaultPool()
		}
		alloc, err := allocatorFor(poolName)
		if err != nil {
			return nil, fmt.Errorf("team %q: %w", teams[i].Name, err)
		}

		slot, err := alloc.AllocateNext()
		if errors.Is(err, rompatch.ErrNoSpace) {
			o.warn(rompatch.ErrCapacityExceeded.WithMessage(
				fmt.Sprintf("team %q dropped: %s", teams[i].Name, err)))
			continue
		} else if err != nil {
			return nil, err
		}
		jobs[i] = &slotJob{slot: slot}
	}

	league := attributes.NewLeague(teams)
	mapper := o.config.Mapper
	if mapper == nil {
		mapper = attributes.NewMapper(target.RatingScale())
	}

	var assigned []*slotJob
	for i, job := range jobs {
		if job == nil {
			continue
		}
		size, err := target.SquadSize(job.slot)
		if err != nil {
			return nil, err
		}

		fit := roster.Fit(teams[i].Players, size)
		for _, warning := range fit.Warnings(teams[i].Name) {
			o.warn(warning)
		}
		job.team = teams[i]
		job.team.Players = fit.Players
		ratePlayers(job.team.Players, mapper, league)

		pool, err := target.Pool(job.slot.Pool)
		if err != nil {
			return nil, err
		}
		o.report.Assignments = append(o.report.Assignments, Assignment{
			Team:  job.team.Name,
			Slot:  job.slot,
			Label: pool.Label(job.slot.Index),
		})
		o.logger.Debug("slot assigned", "team", job.team.Name, "slot", job.slot.String())
		assigned = append(assigned, job)
	}
	return assigned, nil
}

// ratePlayers derives ratings for players that have none and clamps the rest
// to the mapper's scales. Placeholders are left alone.
func ratePlayers(players []rompatch.PlayerRecord, mapper *attributes.Mapper, league *attributes.League) {
	for i := range players {
		player := &players[i]
		if player.Name == games.PlaceholderName && player.Ratings.IsZero() {
			continue
		}
		if player.Ratings.IsZero() {
			player.Ratings = mapper.MapPlayer(*player, league)
		} else {
			player.Ratings = mapper.Clamp(player.Ratings)
		}
	}
}

func (o *Orchestrator) applyBasePatch(img *image.Image) error {
	patch := o.config.BasePatch
	o.report.BasePatch = fmt.Sprintf("%s %q (%d records)", patch.Version, patch.Description, len(patch.Records))

	if err := patch.Apply(img, img.Size(), o.config.BasePatchOptions); err != nil {
		img.Discard()
		return fmt.Errorf("base patch: %w", err)
	}
	if err := img.Commit(); err != nil {
		return err
	}
	o.logger.Info("base patch applied", "version", patch.Version.String(), "records", len(patch.Records))
	return nil
}

// writeSlots encodes and commits one slot at a time. Cancellation is only
// checked between slots.
func (o *Orchestrator) writeSlots(ctx context.Context, img *image.Image, jobs []*slotJob) ([]*slotJob, error) {
	var written []*slotJob
	for step, job := range jobs {
		if err := ctx.Err(); err != nil {
			return written, rompatch.ErrCancelled.Wrap(err).WithMessage(
				fmt.Sprintf("stopped after %d of %d slots", step, len(jobs)))
		}

		plan, err := o.config.Target.Encode(job.slot, &job.team)
		if err != nil {
			o.slotFailed(job, err)
			continue
		}
		for _, warning := range plan.Warnings {
			o.warn(warning)
		}

		if err = stagePlan(img, plan); err != nil {
			img.Discard()
			if rompatch.KindOf(err) == rompatch.KindIOFailure {
				return written, err
			}
			o.slotFailed(job, err)
			continue
		}
		if err = img.Commit(); err != nil {
			return written, err
		}

		job.plan = plan
		written = append(written, job)
		o.logger.Info("slot written", "team", job.team.Name, "slot", job.slot.String(), "bytes", plan.Bytes())
		o.progress(step+1, len(jobs), fmt.Sprintf("%s -> %s", job.team.Name, job.slot))
	}
	return written, nil
}

func stagePlan(img *image.Image, plan *games.SlotPlan) error {
	for _, write := range plan.Writes {
		if err := img.WriteRegion(write.Region, write.Data); err != nil {
			return fmt.Errorf("%s: %w", write.Label, err)
		}
	}
	return nil
}

// verify reads back every written field and compares it with what was
// written, and with the source image.
func (o *Orchestrator) verify(img *image.Image, source *os.File, written []*slotJob) error {
	for _, job := range written {
		for _, write := range job.plan.Writes {
			actual, err := img.ReadRegion(write.Region)
			if err != nil {
				return err
			}
			original, err := write.Region.Load(source)
			if err != nil {
				return err
			}

			check := Check{
				Slot:    job.slot,
				Team:    job.team.Name,
				Field:   write.Label,
				Region:  write.Region,
				Passed:  bytes.Equal(actual, write.Data),
				Changed: !bytes.Equal(original, actual),
			}
			o.report.Checks = append(o.report.Checks, check)
			if !check.Passed {
				o.logger.Warn("verification failed", "slot", job.slot.String(), "field", write.Label)
			}
		}
	}
	o.progress(len(o.report.Checks), len(o.report.Checks), fmt.Sprintf("%d mismatches", o.report.Mismatches()))
	return nil
}
