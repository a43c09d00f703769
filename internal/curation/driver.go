package curation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"moodreel/internal/association"
	"moodreel/internal/canonical"
	"moodreel/internal/config"
	"moodreel/internal/logging"
	"moodreel/internal/matcher"
	"moodreel/internal/metrics"
	"moodreel/internal/notifications"
	"moodreel/internal/scoring"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/suggest"
	"moodreel/internal/taxonomy"
)

// Movie statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Skip reasons.
const (
	SkipBelowRating  = "below_min_rating"
	SkipBreakerOpen  = "breaker_open"
	SkipNoRecording  = "no_recording"
	SkipBadResponse  = "malformed_response"
	SkipMissingMovie = "movie_missing"
	SkipCollaborator = "collaborator_error"
)

// Request selects the pairs to curate. Zero values select every pending pair.
type Request struct {
	ProfileIDs []int64
	MovieIDs   []int64
	// MaxScore also selects already-scored pairs whose score is at or below
	// the bound. Pairs above it are never reprocessed.
	MaxScore *float64
	// Limit caps the number of movies; 0 uses curation.batch_size.
	Limit int
}

// PairResult reports one (movie, profile) evaluation.
type PairResult struct {
	ProfileID int64
	Status    string
	Reason    string
	Tuples    int
	Dropped   int
	Written   map[association.Outcome]int
	NoMatch   int
	Proposed  int
}

// MovieResult aggregates the pairs of one movie.
type MovieResult struct {
	MovieID int64
	Title   string
	Status  string
	Reason  string
	Pairs   []PairResult
}

// Summary reports a curation run.
type Summary struct {
	RunID            string
	Movies           []MovieResult
	Processed        int
	Skipped          int
	Failed           int
	ProposalsCreated int
	Recompute        scoring.Summary
	Duration         time.Duration
}

// Option customizes a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(d *Driver) { d.metrics = rec }
}

// WithNotifier sets the notification service.
func WithNotifier(n notifications.Service) Option {
	return func(d *Driver) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithGate overrides the verification gate.
func WithGate(g scoring.Gate) Option {
	return func(d *Driver) { d.gate = g }
}

// Driver runs curation batches.
type Driver struct {
	cfg       *config.Config
	store     *store.Store
	suggester suggest.Suggester
	matcher   *matcher.Matcher
	gate      scoring.Gate
	logger    *slog.Logger
	metrics   *metrics.Recorder
	notifier  notifications.Service
	newRunID  func() string
	now       func() time.Time
}

// NewDriver wires a driver. sugg is wrapped in a circuit breaker.
func NewDriver(cfg *config.Config, st *store.Store, sugg suggest.Suggester, opts ...Option) *Driver {
	d := &Driver{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewNop(),
		notifier: notifications.NewService(nil),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "curation")
	if d.gate == nil {
		d.gate = canonical.NewService(st, d.logger)
	}
	d.suggester = newGuardedSuggester(sugg, breakerSettings(cfg), d.metrics, d.logger)
	d.matcher = matcher.New(matcher.SynonymTable(cfg.Matcher.Synonyms),
		matcher.WithAcceptThreshold(cfg.Curation.AcceptThreshold),
		matcher.WithProposals(cfg.Curation.ProposeNewConcepts),
	)
	return d
}

func breakerSettings(cfg *config.Config) BreakerSettings {
	return BreakerSettings{
		Failures: cfg.Curation.BreakerFailures,
		Cooldown: time.Duration(cfg.Curation.BreakerCooldownSeconds) * time.Second,
	}
}

// snapshot is the read-only state shared by the movie workers.
type snapshot struct {
	profiles map[int64]taxonomy.Profile
	lenses   map[int64]taxonomy.MainSentiment
	dna      map[int64][]taxonomy.DNARow
	rosters  map[int64]taxonomy.Roster
}

type movieWork struct {
	movieID  int64
	profiles []int64
}

// Run curates one batch.
func (d *Driver) Run(ctx context.Context, req Request) (Summary, error) {
	started := d.now()
	summary := Summary{RunID: d.newRunID()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, d.logger)

	work, err := d.pending(ctx, req)
	if err != nil {
		return summary, err
	}
	snap, err := d.loadSnapshot(ctx, work)
	if err != nil {
		return summary, err
	}
	for profileID := range snap.profiles {
		if err := d.gate.EnsureVerified(ctx, profileID); err != nil {
			return summary, err
		}
	}
	logger.Info("curation batch started", logging.Int("movies", len(work)))

	results := make([]MovieResult, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.cfg.Curation.Workers, 1))
	writer := association.NewWriter(d.store, d.logger)
	for i, item := range work {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := d.curateMovie(services.WithMovieID(gctx, item.movieID), item, snap, writer)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		summary.Movies = results
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	summary.Movies = results
	for _, res := range results {
		switch res.Status {
		case StatusProcessed:
			summary.Processed++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
		for _, pair := range res.Pairs {
			summary.ProposalsCreated += pair.Proposed
		}
	}

	recompute, err := d.recompute(ctx, results, snap)
	summary.Recompute = recompute
	if err != nil {
		return summary, err
	}

	summary.Duration = d.now().Sub(started)
	d.finish(ctx, summary, started)
	return summary, nil
}

func (d *Driver) pending(ctx context.Context, req Request) ([]movieWork, error) {
	suggestions, err := d.store.ListSuggestions(ctx, store.SuggestionFilter{})
	if err != nil {
		return nil, err
	}
	profileSet := idSet(req.ProfileIDs)
	movieSet := idSet(req.MovieIDs)

	byMovie := make(map[int64][]int64)
	var order []int64
	for _, sg := range suggestions {
		if len(profileSet) > 0 && !profileSet[sg.ProfileID] {
			continue
		}
		if len(movieSet) > 0 && !movieSet[sg.MovieID] {
			continue
		}
		if sg.RelevanceScore != nil && (req.MaxScore == nil || *sg.RelevanceScore > *req.MaxScore) {
			continue
		}
		if _, ok := byMovie[sg.MovieID]; !ok {
			order = append(order, sg.MovieID)
		}
		byMovie[sg.MovieID] = append(byMovie[sg.MovieID], sg.ProfileID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	limit := req.Limit
	if limit <= 0 {
		limit = d.cfg.Curation.BatchSize
	}
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	work := make([]movieWork, 0, len(order))
	for _, id := range order {
		work = append(work, movieWork{movieID: id, profiles: byMovie[id]})
	}
	return work, nil
}

func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (d *Driver) loadSnapshot(ctx context.Context, work []movieWork) (snapshot, error) {
	snap := snapshot{
		profiles: map[int64]taxonomy.Profile{},
		lenses:   map[int64]taxonomy.MainSentiment{},
		dna:      map[int64][]taxonomy.DNARow{},
		rosters:  map[int64]taxonomy.Roster{},
	}
	mains, err := d.store.MainSentiments(ctx)
	if err != nil {
		return snap, err
	}
	for _, m := range mains {
		snap.lenses[m.ID] = m
	}
	for _, item := range work {
		for _, profileID := range item.profiles {
			if _, ok := snap.profiles[profileID]; ok {
				continue
			}
			profile, err := d.store.Profile(ctx, profileID)
			if err != nil {
				return snap, err
			}
			if profile == nil {
				return snap, services.Wrap(services.ErrNotFound, "curation", "load profile", fmt.Sprintf("profile %d", profileID), nil)
			}
			snap.profiles[profileID] = *profile
			dna, err := d.store.ProfileDNA(ctx, profileID)
			if err != nil {
				return snap, err
			}
			snap.dna[profileID] = dna
			if _, ok := snap.rosters[profile.MainSentimentID]; !ok {
				roster, err := d.store.Roster(ctx, profile.MainSentimentID)
				if err != nil {
					return snap, err
				}
				snap.rosters[profile.MainSentimentID] = roster
			}
		}
	}
	return snap, nil
}

// curateMovie evaluates every pending profile of one movie. Only context
// cancellation is returned as an error; everything else is a typed result.
func (d *Driver) curateMovie(ctx context.Context, item movieWork, snap snapshot, writer *association.Writer) (MovieResult, error) {
	res := MovieResult{MovieID: item.movieID, Status: StatusProcessed}
	logger := logging.WithContext(ctx, d.logger)

	movie, err := d.store.Movie(ctx, item.movieID)
	if err != nil {
		res.Status, res.Reason = StatusFailed, err.Error()
		return res, ctx.Err()
	}
	if movie == nil {
		res.Status, res.Reason = StatusSkipped, SkipMissingMovie
		return res, nil
	}
	res.Title = movie.Title
	if movie.BestRating() < d.cfg.Curation.MinRating {
		res.Status, res.Reason = StatusSkipped, SkipBelowRating
		logger.Info("movie below rating gate",
			logging.Args(append(logging.DecisionAttrs("eligibility", "skipped", SkipBelowRating),
				logging.Float64("rating", movie.BestRating()),
				logging.Float64("min_rating", d.cfg.Curation.MinRating))...)...)
		return res, nil
	}

	for _, profileID := range item.profiles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pair := d.curatePair(services.WithProfileID(ctx, profileID), *movie, snap.profiles[profileID], snap, writer)
		res.Pairs = append(res.Pairs, pair)
	}

	failed, skipped := 0, 0
	for _, pair := range res.Pairs {
		switch pair.Status {
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	switch {
	case failed > 0:
		res.Status, res.Reason = StatusFailed, firstReason(res.Pairs, StatusFailed)
	case skipped == len(res.Pairs) && skipped > 0:
		res.Status, res.Reason = StatusSkipped, firstReason(res.Pairs, StatusSkipped)
	}
	return res, ctx.Err()
}

func firstReason(pairs []PairResult, status string) string {
	for _, p := range pairs {
		if p.Status == status {
			return p.Reason
		}
	}
	return ""
}

func (d *Driver) curatePair(ctx context.Context, movie taxonomy.Movie, profile taxonomy.Profile, snap snapshot, writer *association.Writer) PairResult {
	pair := PairResult{ProfileID: profile.ID, Status: StatusProcessed, Written: map[association.Outcome]int{}}
	logger := logging.WithContext(ctx, d.logger)
	lens := profile.MainSentimentID
	roster := snap.rosters[lens]

	resp, err := d.suggester.Suggest(ctx, suggest.Request{
		Movie:      movie,
		Profile:    profile,
		Lens:       snap.lenses[lens],
		Expected:   snap.dna[profile.ID],
		Library:    roster,
		MaxMatches: d.cfg.Curation.MaxMatches,
	})
	if err != nil {
		pair.Status, pair.Reason = classifySuggestError(err)
		logger.Warn("suggestion request not usable",
			logging.Args(append(logging.DecisionAttrs("suggest", pair.Status, pair.Reason), logging.Error(err))...)...)
		return pair
	}

	tuples, dropped := suggest.Sanitize(resp.Matches, d.cfg.Curation.MinRelevance, d.cfg.Curation.MaxMatches)
	pair.Tuples = len(tuples)
	pair.Dropped = len(dropped)
	for _, drop := range dropped {
		d.metrics.DroppedTuple(drop.Reason)
		logger.Debug("tuple dropped",
			logging.Args(append(logging.DecisionAttrs("sanitize", "dropped", drop.Reason),
				logging.String("label", drop.Label), logging.String("detail", drop.Detail))...)...)
	}

	for _, tuple := range tuples {
		outcome := d.matcher.Match(matcher.Candidate{
			Label:       tuple.Label,
			Explanation: tuple.Explanation,
			HintedID:    tuple.HintedID,
		}, lens, roster)
		d.metrics.MatcherOutcome(string(outcome.Kind), string(outcome.Pass))
		logger.Debug("concept match",
			logging.Args(append(logging.DecisionAttrs("match", string(outcome.Kind), outcome.Reason),
				logging.String("label", tuple.Label),
				logging.String("pass", string(outcome.Pass)),
				logging.Float64("score", outcome.Score))...)...)

		switch outcome.Kind {
		case matcher.Matched:
			written, err := writer.Write(ctx, association.Input{
				MovieID:         movie.ID,
				MainSentimentID: lens,
				SubSentiment:    outcome.Entry,
				Relevance:       tuple.Relevance,
				Explanation:     tuple.Explanation,
			})
			if err != nil {
				if errors.Is(err, services.ErrValidation) {
					pair.Dropped++
					d.metrics.DroppedTuple(suggest.DropInvalid)
					continue
				}
				pair.Status, pair.Reason = StatusFailed, err.Error()
				logger.Error("association write failed", logging.Error(err))
				return pair
			}
			pair.Written[written.Outcome]++
			d.metrics.AssociationWrite(string(written.Outcome))
		case matcher.ProposeNew:
			proposal, created, err := d.store.AddProposal(ctx, taxonomy.Proposal{
				MainSentimentID: outcome.Proposal.MainSentimentID,
				Name:            outcome.Proposal.Name,
				Keywords:        outcome.Proposal.Keywords,
				MovieID:         movie.ID,
				Relevance:       tuple.Relevance,
				Explanation:     tuple.Explanation,
			})
			if err != nil {
				pair.Status, pair.Reason = StatusFailed, err.Error()
				logger.Error("proposal write failed", logging.Error(err))
				return pair
			}
			if created {
				pair.Proposed++
			} else {
				logger.Debug("proposal already recorded",
					logging.Int64("proposal_id", proposal.ID),
					logging.String("status", string(proposal.Status)),
				)
			}
		default:
			pair.NoMatch++
		}
	}
	return pair
}

func classifySuggestError(err error) (string, string) {
	switch {
	case breakerOpen(err):
		return StatusSkipped, SkipBreakerOpen
	case errors.Is(err, services.ErrNotFound):
		return StatusSkipped, SkipNoRecording
	case errors.Is(err, services.ErrValidation):
		return StatusSkipped, SkipBadResponse
	case services.NeedsOperator(err):
		return StatusFailed, err.Error()
	default:
		return StatusSkipped, SkipCollaborator
	}
}

func (d *Driver) recompute(ctx context.Context, results []MovieResult, snap snapshot) (scoring.Summary, error) {
	recomputer := scoring.NewRecomputer(d.store, d.gate, d.logger,
		scoring.WithThreshold(d.cfg.Curation.CurationThreshold),
		scoring.WithReasons(d.reasonFunc(snap)),
	)
	var total scoring.Summary
	for _, res := range results {
		for _, pair := range res.Pairs {
			if pair.Status != StatusProcessed {
				continue
			}
			s, err := recomputer.Recompute(ctx, scoring.Request{MovieID: res.MovieID, ProfileID: pair.ProfileID})
			total.Evaluated += s.Evaluated
			total.Changed += s.Changed
			total.ReasonsWritten += s.ReasonsWritten
			total.ReasonFailures += s.ReasonFailures
			total.MoviesRanked += s.MoviesRanked
			total.Changes = append(total.Changes, s.Changes...)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (d *Driver) reasonFunc(snap snapshot) scoring.ReasonFunc {
	return func(ctx context.Context, movieID, profileID int64, result scoring.Result) (string, error) {
		movie, err := d.store.Movie(ctx, movieID)
		if err != nil {
			return "", fmt.Errorf("load movie %d: %w", movieID, err)
		}
		if movie == nil {
			return "", services.Wrap(services.ErrNotFound, "curation", "reason", fmt.Sprintf("movie %d", movieID), nil)
		}
		return d.suggester.Reason(ctx, suggest.ReasonRequest{
			Movie:   *movie,
			Profile: snap.profiles[profileID],
			Score:   result.Score,
			Matched: result.Matched,
		})
	}
}

func (d *Driver) finish(ctx context.Context, summary Summary, started time.Time) {
	logger := logging.WithContext(ctx, d.logger)
	d.metrics.RunFinished("curate", started, d.now())
	if err := d.metrics.WriteTextfile(d.cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics export failed", logging.Error(err))
	}

	if summary.ProposalsCreated > 0 {
		pending, err := d.store.CountProposals(ctx, taxonomy.ProposalPending)
		if err != nil {
			logger.Warn("count pending proposals failed", logging.Error(err))
		} else if err := d.notifier.Publish(ctx, notifications.EventApprovalsPending, notifications.Payload{"count": pending}); err != nil {
			logger.Warn("approval notification failed", logging.Error(err))
		}
	}
	if err := d.notifier.Publish(ctx, notifications.EventCurationCompleted, notifications.Payload{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"duration":  summary.Duration,
	}); err != nil {
		logger.Warn("summary notification failed", logging.Error(err))
	}

	logger.Info("curation batch finished",
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("proposals", summary.ProposalsCreated),
		logging.Int("scores_changed", summary.Recompute.Changed),
		logging.Duration("duration", summary.Duration),
	)
}
