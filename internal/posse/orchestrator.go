// Package posse orchestrates a post-sync event: extract outbound links,
// diff against the store's prior record, send or retract webmentions
// for the delta, and syndicate new posts to social accounts.
package posse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/cache"
	"github.com/debemdeboas/posse/internal/links"
	"github.com/debemdeboas/posse/internal/model"
	"github.com/debemdeboas/posse/internal/render"
	"github.com/debemdeboas/posse/internal/social"
	"github.com/debemdeboas/posse/internal/store"
	"github.com/debemdeboas/posse/internal/util"
	"github.com/debemdeboas/posse/internal/webmention"
)

var posseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	posseLogger = l
}

type Action string

const (
	ActionSend    Action = "send"
	ActionRetract Action = "retract"
)

// LinkOutcome is the per-link result of one sync. Failed sends are
// collected here instead of aborting the batch.
type LinkOutcome struct {
	Target     string
	Action     Action
	OK         bool
	StatusCode int
	Message    string
}

// Report summarizes a processed webhook event. The webhook handler
// decides what HTTP status to answer based on it.
type Report struct {
	PostID   model.PostID
	Skipped  bool
	Outcomes []LinkOutcome

	// Syndicated lists "platform/account" pairs that accepted the post.
	Syndicated []string
}

func (r *Report) Failures() []LinkOutcome {
	var failed []LinkOutcome
	for _, o := range r.Outcomes {
		if !o.OK {
			failed = append(failed, o)
		}
	}
	return failed
}

type Orchestrator struct {
	store      store.Store
	extractor  *links.Extractor
	sender     webmention.Sender
	publishers []social.Publisher

	concurrency int

	// Per-post locks serialize syncs when webhooks for the same post
	// arrive in rapid succession. Different posts proceed in parallel.
	locks *cache.Cache[model.PostID, *sync.Mutex]
}

func New(st store.Store, extractor *links.Extractor, sender webmention.Sender, publishers []social.Publisher, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		store:       st,
		extractor:   extractor,
		sender:      sender,
		publishers:  publishers,
		concurrency: concurrency,
		locks:       cache.NewCache[model.PostID, *sync.Mutex](),
	}
}

func (o *Orchestrator) lockFor(postID model.PostID) *sync.Mutex {
	return o.locks.GetOrCreate(postID, func() *sync.Mutex { return &sync.Mutex{} })
}

// HandlePublish syncs webmentions for a newly published post and
// syndicates it to every matching social account.
func (o *Orchestrator) HandlePublish(ctx context.Context, post *model.Post) (*Report, error) {
	mu := o.lockFor(post.ID)
	mu.Lock()
	defer mu.Unlock()

	report, err := o.syncLinks(ctx, post, false)
	if err != nil {
		return report, err
	}
	o.syndicate(ctx, post, report)
	return report, nil
}

// HandleUpdate re-syncs webmentions after a post edit. Content that
// hashes the same as the last sync is skipped. Updates never
// re-syndicate.
func (o *Orchestrator) HandleUpdate(ctx context.Context, post *model.Post) (*Report, error) {
	mu := o.lockFor(post.ID)
	mu.Lock()
	defer mu.Unlock()

	return o.syncLinks(ctx, post, true)
}

// HandleDelete retracts every confirmed webmention of a deleted post.
func (o *Orchestrator) HandleDelete(ctx context.Context, postID model.PostID) (*Report, error) {
	mu := o.lockFor(postID)
	mu.Lock()
	defer mu.Unlock()

	report := &Report{PostID: postID}

	affected, err := o.store.DeleteAll(postID)
	if err != nil {
		return report, fmt.Errorf("error retracting webmentions for post %s: %w", postID, err)
	}

	// DeleteAll has committed, so a retry would see an empty affected
	// set. The retraction sends must go out before anything else can
	// fail the event.
	results := o.sendAll(ctx, affected, ActionRetract)
	report.Outcomes = append(report.Outcomes, results...)

	if err := o.store.DeleteSnapshot(postID); err != nil {
		return report, err
	}

	posseLogger.Info().
		Str("post_id", string(postID)).
		Int("retracted", len(affected)).
		Msg("Post deleted, webmentions retracted")

	return report, nil
}

// syncLinks is the shared create/update path. Store failures propagate;
// individual send failures only land in the report.
func (o *Orchestrator) syncLinks(ctx context.Context, post *model.Post, skipUnchanged bool) (*Report, error) {
	report := &Report{PostID: post.ID}

	// A nil sender means webmentions are disabled in config; the post
	// still syndicates but no link tracking happens.
	if o.sender == nil {
		report.Skipped = true
		return report, nil
	}

	body := post.HTML
	if body == "" && len(post.Markdown) > 0 {
		body = string(render.MarkdownToHTML(post.Markdown))
	}

	bodyHash := util.ContentHash([]byte(body))
	if skipUnchanged {
		prevHash, err := o.store.SnapshotHash(post.ID)
		if err != nil && !errors.Is(err, store.ErrSnapshotNotFound) {
			return report, err
		}
		if err == nil && prevHash == bodyHash {
			posseLogger.Debug().Str("post_id", string(post.ID)).Msg("Post body unchanged, skipping sync")
			report.Skipped = true
			return report, nil
		}
	}

	current := o.extractor.Extract(body)

	previous, err := o.store.Query(post.ID)
	if err != nil {
		return report, fmt.Errorf("error loading prior webmentions for post %s: %w", post.ID, err)
	}
	previousSet := make(map[string]struct{}, len(previous))
	for _, rec := range previous {
		previousSet[rec.Target] = struct{}{}
	}

	diff := links.Diff(previousSet, current)

	posseLogger.Info().
		Str("post_id", string(post.ID)).
		Int("added", len(diff.Added)).
		Int("removed", len(diff.Removed)).
		Int("unchanged", len(diff.Unchanged)).
		Msg("Computed webmention diff")

	var storeErr error

	// New links: send first, record only after a confirmed send so a
	// failed delivery is retried on the next webhook.
	sendOutcomes := o.sendTargets(ctx, post.URL, diff.Added, ActionSend, func(target string) error {
		return o.store.Record(post.ID, target, post.URL, time.Now().UTC())
	}, &storeErr)
	report.Outcomes = append(report.Outcomes, sendOutcomes...)

	// Removed links: retract in the store, then notify the receiver so
	// it can drop the mention on re-verification.
	for _, rec := range previous {
		if _, gone := diff.Removed[rec.Target]; !gone {
			continue
		}
		if err := o.store.MarkRetracted(post.ID, rec.Target); err != nil {
			storeErr = err
			continue
		}
		res := o.sender.Send(ctx, rec.Source, rec.Target)
		report.Outcomes = append(report.Outcomes, outcomeOf(rec.Target, ActionRetract, res))
	}

	if storeErr != nil {
		return report, fmt.Errorf("error updating webmention store for post %s: %w", post.ID, storeErr)
	}

	if err := o.store.SaveSnapshot(post.ID, []byte(body), bodyHash); err != nil {
		return report, err
	}

	return report, nil
}

// sendTargets delivers webmentions for a target set with bounded
// concurrency. Distinct targets run in parallel; a given target is only
// ever attempted once per sync. onSuccess runs in the worker after a
// confirmed send and its error is captured into storeErr.
func (o *Orchestrator) sendTargets(ctx context.Context, source string, targets map[string]struct{}, action Action, onSuccess func(target string) error, storeErr *error) []LinkOutcome {
	if len(targets) == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan LinkOutcome, len(targets))

	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := o.concurrency
	if workers > len(targets) {
		workers = len(targets)
	}

	worker := func() {
		defer wg.Done()
		for target := range jobs {
			res := o.sender.Send(ctx, source, target)
			if res.Success && onSuccess != nil {
				if err := onSuccess(target); err != nil {
					mu.Lock()
					*storeErr = err
					mu.Unlock()
				}
			}
			results <- outcomeOf(target, action, res)
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

	for target := range targets {
		jobs <- target
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]LinkOutcome, 0, len(targets))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// sendAll issues retraction sends for already-retracted records, one
// per record, concurrently across distinct targets.
func (o *Orchestrator) sendAll(ctx context.Context, records []model.SentWebmention, action Action) []LinkOutcome {
	if len(records) == 0 || o.sender == nil {
		return nil
	}

	outcomes := make([]LinkOutcome, len(records))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.concurrency)
	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec model.SentWebmention) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := o.sender.Send(ctx, rec.Source, rec.Target)
			outcomes[i] = outcomeOf(rec.Target, action, res)
		}(i, rec)
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) syndicate(ctx context.Context, post *model.Post, report *Report) {
	for _, pub := range o.publishers {
		if !pub.Matches(post) {
			posseLogger.Debug().
				Str("post_id", string(post.ID)).
				Str("account", pub.Name()).
				Msg("Post filtered out for account")
			continue
		}

		result, err := pub.Publish(ctx, post)
		if err != nil {
			posseLogger.Error().Err(err).
				Str("post_id", string(post.ID)).
				Str("platform", pub.Platform()).
				Str("account", pub.Name()).
				Msg("Syndication failed")
			continue
		}

		if err := o.store.RecordSyndication(post.ID, pub.Platform(), pub.Name(), result.URL); err != nil {
			posseLogger.Error().Err(err).
				Str("post_id", string(post.ID)).
				Msg("Failed to record syndication")
			continue
		}

		report.Syndicated = append(report.Syndicated, pub.Platform()+"/"+pub.Name())
	}
}

func outcomeOf(target string, action Action, res webmention.Result) LinkOutcome {
	return LinkOutcome{
		Target:     target,
		Action:     action,
		OK:         res.Success,
		StatusCode: res.StatusCode,
		Message:    res.Message,
	}
}
