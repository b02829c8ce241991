package correct

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hallamw/commlog/internal/phone"
	"github.com/hallamw/commlog/internal/store"
)

// MergeDuplicateContacts converges the contact table to one contact per
// canonical phone number. Contacts sharing a canonical number are merged
// into the lowest-id keeper (messages reassigned, number canonicalized,
// name backfilled from an absorbed contact when the keeper has none).
// Singletons whose stored number differs from canonical are updated in
// place, unless that would collide with a different contact, in which
// case they merge into it.
//
// Idempotent: after one run every contact holds its canonical number and
// every canonical number maps to one contact.
func MergeDuplicateContacts(ctx context.Context, s store.Store) (*Result, error) {
	contacts, err := s.AllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}

	// AllContacts returns ascending IDs, so each group comes out with its
	// deterministic keeper (lowest id) first.
	groups := make(map[string][]*store.Contact)
	for _, c := range contacts {
		canonical := phone.Normalize(c.PhoneNumber)
		groups[canonical] = append(groups[canonical], c)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := &Result{}
	for _, canonical := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		group := groups[canonical]
		res.Examined += int64(len(group))

		if len(group) > 1 {
			keeper := group[0]
			for _, other := range group[1:] {
				if err := s.MergeContacts(ctx, keeper.ID, other.ID); err != nil {
					fmt.Fprintf(os.Stderr, "Error: merging contact %d into %d: %v\n",
						other.ID, keeper.ID, err)
					res.Errors++
					continue
				}
				res.Updated++
			}
			continue
		}

		c := group[0]
		if c.PhoneNumber == canonical {
			res.Skipped++
			continue
		}

		existing, err := s.FindContactByPhone(ctx, canonical)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: normalizing contact %d: %v\n", c.ID, err)
			res.Errors++
			continue
		}
		if existing != nil && existing.ID != c.ID {
			// Updating in place would collide; absorb into the existing
			// contact instead.
			if err := s.MergeContacts(ctx, existing.ID, c.ID); err != nil {
				fmt.Fprintf(os.Stderr, "Error: merging contact %d into %d: %v\n",
					c.ID, existing.ID, err)
				res.Errors++
				continue
			}
			res.Updated++
			continue
		}

		if err := s.UpdateContactPhone(ctx, c.ID, canonical); err != nil {
			fmt.Fprintf(os.Stderr, "Error: normalizing contact %d: %v\n", c.ID, err)
			res.Errors++
			continue
		}
		res.Updated++
	}

	return res, nil
}
