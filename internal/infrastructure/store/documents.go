package store

import (
	"errors"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/domain/settings"
	"github.com/hucksarn/movieflixdash/internal/domain/subscription"
	"github.com/hucksarn/movieflixdash/internal/domain/user"
	"github.com/hucksarn/movieflixdash/internal/domain/workflow"
)

// Documents wraps a Store with typed accessors for each shared document.
// Missing collection documents decode as empty; a missing settings document
// is an error because nothing can run without it.
type Documents struct {
	store Store
}

func NewDocuments(s Store) *Documents {
	return &Documents{store: s}
}

func (d *Documents) Subscriptions() ([]subscription.Subscription, error) {
	var subs []subscription.Subscription
	if err := d.store.Get(DocSubscriptions, &subs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return subs, nil
}

func (d *Documents) SaveSubscriptions(subs []subscription.Subscription) error {
	if subs == nil {
		subs = []subscription.Subscription{}
	}
	return d.store.Put(DocSubscriptions, subs)
}

func (d *Documents) MediaRequests() ([]mediarequest.MediaRequest, error) {
	var reqs []mediarequest.MediaRequest
	if err := d.store.Get(DocMediaRequests, &reqs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reqs, nil
}

func (d *Documents) SaveMediaRequests(reqs []mediarequest.MediaRequest) error {
	if reqs == nil {
		reqs = []mediarequest.MediaRequest{}
	}
	return d.store.Put(DocMediaRequests, reqs)
}

func (d *Documents) UnlimitedUsers() ([]user.UnlimitedUser, error) {
	var users []user.UnlimitedUser
	if err := d.store.Get(DocUnlimitedUsers, &users); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return users, nil
}

func (d *Documents) SaveUnlimitedUsers(users []user.UnlimitedUser) error {
	if users == nil {
		users = []user.UnlimitedUser{}
	}
	return d.store.Put(DocUnlimitedUsers, users)
}

func (d *Documents) Settings() (*settings.Settings, error) {
	var s settings.Settings
	if err := d.store.Get(DocSettings, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *Documents) BotState() (*workflow.State, error) {
	var s workflow.State
	if err := d.store.Get(DocBotState, &s); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	s.Normalize()
	return &s, nil
}

func (d *Documents) SaveBotState(s *workflow.State) error {
	return d.store.Put(DocBotState, s)
}
