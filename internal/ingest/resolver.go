package ingest

import (
	"context"
	"fmt"

	"github.com/hallamw/commlog/internal/phone"
	"github.com/hallamw/commlog/internal/store"
)

// Resolver maps phone numbers to persistent contacts, creating them on
// first sight. All lookups go through the canonical form, so differently
// written numbers for the same subscriber resolve to one contact within
// a run.
type Resolver struct {
	store store.Store
}

// NewResolver returns a resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the contact id for a phone number, consulting the
// session cache, then the store, then creating a new INDIVIDUAL contact.
// Every resolution updates the cache and the session's fallback pointer.
// A supplied name backfills contacts that have none; an existing name is
// never overwritten.
func (r *Resolver) Resolve(ctx context.Context, sess *Session, rawPhone, name string) (int64, error) {
	canonical := phone.Normalize(rawPhone)
	if canonical == "" {
		return 0, fmt.Errorf("empty phone number")
	}

	if id, ok := sess.CachedContact(canonical); ok {
		sess.Remember(canonical, id)
		if name != "" {
			if err := r.store.SetContactNameIfEmpty(ctx, id, name); err != nil {
				return 0, err
			}
		}
		return id, nil
	}

	existing, err := r.store.FindContactByPhone(ctx, canonical)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		sess.Remember(canonical, existing.ID)
		if name != "" && existing.Name == "" {
			if err := r.store.SetContactNameIfEmpty(ctx, existing.ID, name); err != nil {
				return 0, err
			}
		}
		return existing.ID, nil
	}

	id, err := r.store.CreateContact(ctx, &store.Contact{
		PhoneNumber: canonical,
		Name:        name,
		Type:        store.ContactIndividual,
	})
	if err != nil {
		return 0, fmt.Errorf("creating contact for %s: %w", canonical, err)
	}

	sess.Remember(canonical, id)
	sess.Stats.ContactsCreated++
	return id, nil
}
