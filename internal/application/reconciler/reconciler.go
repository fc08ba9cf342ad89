// Package reconciler drives media-server access policies toward the state
// the subscription documents prescribe.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hucksarn/movieflixdash/internal/domain/subscription"
	"github.com/hucksarn/movieflixdash/internal/domain/user"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/mediaserver"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/store"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// MediaServerAPI is the slice of the media server client the reconciler
// uses.
type MediaServerAPI interface {
	ListUsers(ctx context.Context) ([]user.MediaUser, error)
	ListLibraries(ctx context.Context) ([]mediaserver.Library, error)
	GetPolicy(ctx context.Context, userID string) (map[string]any, error)
	UpdatePolicy(ctx context.Context, userID string, current, target map[string]any) error
}

// Reconciler performs one full reconcile pass per invocation: prune,
// trial issuance, policy derivation, idempotent apply.
type Reconciler struct {
	docs  *store.Documents
	media MediaServerAPI
	log   logger.Interface
	now   func() time.Time
	newID func() string
}

func New(docs *store.Documents, media MediaServerAPI, log logger.Interface) *Reconciler {
	return &Reconciler{
		docs:  docs,
		media: media,
		log:   log.Named("reconciler"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run executes one reconcile cycle. Listing failures abort the cycle; the
// next trigger retries. Per-user write failures skip that user only.
func (r *Reconciler) Run(ctx context.Context) error {
	started := r.now()

	users, err := r.media.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list upstream users: %w", err)
	}
	libraries, err := r.media.ListLibraries(ctx)
	if err != nil {
		return fmt.Errorf("list libraries: %w", err)
	}

	settings, err := r.docs.Settings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	subs, err := r.docs.Subscriptions()
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	unlimited, err := r.docs.UnlimitedUsers()
	if err != nil {
		return fmt.Errorf("load unlimited users: %w", err)
	}

	subs = r.prune(users, subs)

	if !settings.DisableAutoTrial {
		subs = r.issueTrials(users, subs, unlimited, settings.AdminUsernames)
	}

	changed := r.applyPolicies(ctx, users, libraries, subs, unlimited, settings.AdminUsernames)

	r.log.Infow("reconcile cycle finished",
		"users", len(users),
		"policies_written", changed,
		"took", r.now().Sub(started).String(),
	)
	return nil
}

// prune removes subscription and media-request records whose owner no
// longer exists upstream, keeping the documents from accumulating orphans.
func (r *Reconciler) prune(users []user.MediaUser, subs []subscription.Subscription) []subscription.Subscription {
	known := make(map[string]bool, len(users)*2)
	for _, u := range users {
		if u.ID != "" {
			known[u.ID] = true
		}
		known[strings.ToLower(u.Name)] = true
	}

	unlimited, err := r.docs.UnlimitedUsers()
	if err == nil {
		keptU := unlimited[:0:0]
		var droppedU int
		for _, u := range unlimited {
			if known[u.UserID] || known[strings.ToLower(u.Username)] {
				keptU = append(keptU, u)
			} else {
				droppedU++
			}
		}
		if droppedU > 0 {
			if err := r.docs.SaveUnlimitedUsers(keptU); err != nil {
				r.log.Errorw("failed to persist pruned unlimited users", "error", err)
			} else {
				r.log.Infow("pruned orphaned unlimited users", "count", droppedU)
			}
		}
	}

	kept := subs[:0:0]
	var droppedSubs int
	for _, s := range subs {
		if known[s.UserKey()] {
			kept = append(kept, s)
		} else {
			droppedSubs++
		}
	}
	if droppedSubs > 0 {
		if err := r.docs.SaveSubscriptions(kept); err != nil {
			r.log.Errorw("failed to persist pruned subscriptions", "error", err)
			return subs
		}
		r.log.Infow("pruned orphaned subscriptions", "count", droppedSubs)
	}

	reqs, err := r.docs.MediaRequests()
	if err != nil {
		r.log.Errorw("failed to load media requests for pruning", "error", err)
		return kept
	}
	keptReqs := reqs[:0:0]
	var droppedReqs int
	for _, q := range reqs {
		if known[q.UserKey()] {
			keptReqs = append(keptReqs, q)
		} else {
			droppedReqs++
		}
	}
	if droppedReqs > 0 {
		if err := r.docs.SaveMediaRequests(keptReqs); err != nil {
			r.log.Errorw("failed to persist pruned media requests", "error", err)
		} else {
			r.log.Infow("pruned orphaned media requests", "count", droppedReqs)
		}
	}

	return kept
}

// issueTrials creates exactly one auto-approved trial for every upstream
// user with no subscription history. Unlimited users and admins never get
// one.
func (r *Reconciler) issueTrials(users []user.MediaUser, subs []subscription.Subscription, unlimited []user.UnlimitedUser, adminNames []string) []subscription.Subscription {
	exempt := user.UnlimitedSet(unlimited)
	admins := lowerSet(adminNames)

	now := r.now()
	var issued int
	for _, u := range users {
		if user.IsUnlimited(exempt, u) || admins[strings.ToLower(u.Name)] {
			continue
		}
		if subscription.HasAnyForUser(subs, u.Key()) {
			continue
		}
		trial := subscription.NewTrial(r.newID(), u.ID, u.Name, now)
		subs = append(subs, trial)
		issued++
		r.log.Infow("issued trial subscription", "username", u.Name, "ends", trial.EndDate.Format(time.DateOnly))
	}
	if issued > 0 {
		if err := r.docs.SaveSubscriptions(subs); err != nil {
			r.log.Errorw("failed to persist trial subscriptions", "error", err)
		}
	}
	return subs
}

// applyPolicies computes each user's target policy and writes it only when
// it differs from what the server already has. Returns the number of writes.
func (r *Reconciler) applyPolicies(ctx context.Context, users []user.MediaUser, libraries []mediaserver.Library, subs []subscription.Subscription, unlimited []user.UnlimitedUser, adminNames []string) int {
	exempt := user.UnlimitedSet(unlimited)
	admins := lowerSet(adminNames)
	authoritative := subscription.AuthoritativePerUser(subs)
	now := r.now()

	enabledPolicy := mediaserver.BuildAccessPolicy(true, libraries)
	disabledPolicy := mediaserver.BuildAccessPolicy(false, libraries)

	var changed int
	var disabledNow, enabledNow []string
	for _, u := range users {
		enable := user.IsUnlimited(exempt, u) || admins[strings.ToLower(u.Name)]
		if !enable {
			if auth, ok := authoritative[u.Key()]; ok {
				enable = auth.IsActive(now)
			}
		}

		target := disabledPolicy
		if enable {
			target = enabledPolicy
		}

		current, err := r.media.GetPolicy(ctx, u.ID)
		if err != nil {
			r.log.Warnw("skipping user, policy read failed", "username", u.Name, "error", err)
			continue
		}
		if mediaserver.PolicyEquals(current, target) {
			continue
		}
		if err := r.media.UpdatePolicy(ctx, u.ID, current, target); err != nil {
			r.log.Warnw("skipping user, policy write failed", "username", u.Name, "error", err)
			continue
		}
		changed++
		r.log.Infow("updated access policy", "username", u.Name, "enabled", enable)
		if enable {
			enabledNow = append(enabledNow, u.Key())
		} else {
			disabledNow = append(disabledNow, u.Key())
		}
	}

	if len(disabledNow) > 0 || len(enabledNow) > 0 {
		r.markPlaybackState(subs, authoritative, disabledNow, enabledNow, now)
	}
	return changed
}

// markPlaybackState records when enforcement actually restricted a user, so
// the dashboard can show it, and clears the mark when access comes back.
func (r *Reconciler) markPlaybackState(subs []subscription.Subscription, authoritative map[string]subscription.Subscription, disabled, enabled []string, now time.Time) {
	var dirty bool
	for _, key := range disabled {
		auth, ok := authoritative[key]
		if !ok {
			continue
		}
		rec := subscription.Find(subs, auth.ID)
		if rec == nil || rec.PlaybackDisabledAt != nil {
			continue
		}
		ts := now
		rec.PlaybackDisabledAt = &ts
		dirty = true
	}
	for _, key := range enabled {
		auth, ok := authoritative[key]
		if !ok {
			continue
		}
		rec := subscription.Find(subs, auth.ID)
		if rec == nil || rec.PlaybackDisabledAt == nil {
			continue
		}
		rec.PlaybackDisabledAt = nil
		dirty = true
	}
	if dirty {
		if err := r.docs.SaveSubscriptions(subs); err != nil {
			r.log.Errorw("failed to persist playback state marks", "error", err)
		}
	}
}

func lowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
