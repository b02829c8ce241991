package correct

import (
	"context"
	"testing"

	"github.com/hallamw/commlog/internal/store"
)

func TestMergeDuplicateContacts_CollapsesGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Same line, three stored spellings.
	a := addContact(t, s, "7771234", "")
	b := addContact(t, s, "+9607771234", "Ahmed")
	c := addContact(t, s, "9607771234", "")

	addMessage(t, s, &store.Message{Direction: store.DirectionFrom, SenderID: &a, Timestamp: ts(9, 0), Content: "one"})
	addMessage(t, s, &store.Message{Direction: store.DirectionFrom, SenderID: &b, Timestamp: ts(9, 1), Content: "two"})
	addMessage(t, s, &store.Message{Direction: store.DirectionTo, ReceiverID: &c, Timestamp: ts(9, 2), Content: "three"})

	res, err := MergeDuplicateContacts(ctx, s)
	if err != nil {
		t.Fatalf("MergeDuplicateContacts failed: %v", err)
	}
	if res.Examined != 3 || res.Updated != 2 || res.Errors != 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	contacts, err := s.AllContacts(ctx)
	if err != nil {
		t.Fatalf("AllContacts failed: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 surviving contact, got %d", len(contacts))
	}
	keeper := contacts[0]
	if keeper.ID != a {
		t.Errorf("keeper should be the lowest id, got %d", keeper.ID)
	}
	if keeper.PhoneNumber != "+9607771234" {
		t.Errorf("keeper number not canonical: %q", keeper.PhoneNumber)
	}
	if keeper.Name != "Ahmed" {
		t.Errorf("name not carried over from absorbed contact: %q", keeper.Name)
	}

	msgs, err := s.MessagesForContact(ctx, keeper.ID)
	if err != nil {
		t.Fatalf("MessagesForContact failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("expected the union of all 3 messages, got %d", len(msgs))
	}
}

func TestMergeDuplicateContacts_NormalizesSingleton(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := addContact(t, s, "7771234", "Ahmed")

	res, err := MergeDuplicateContacts(ctx, s)
	if err != nil {
		t.Fatalf("MergeDuplicateContacts failed: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	c, err := s.GetContact(ctx, id)
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if c.PhoneNumber != "+9607771234" {
		t.Errorf("number not normalized in place: %q", c.PhoneNumber)
	}
}

func TestMergeDuplicateContacts_AlreadyCanonicalSkipped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addContact(t, s, "+9607771234", "")
	addContact(t, s, "+9607775678", "")

	res, err := MergeDuplicateContacts(ctx, s)
	if err != nil {
		t.Fatalf("MergeDuplicateContacts failed: %v", err)
	}
	if res.Examined != 2 || res.Updated != 0 || res.Skipped != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestMergeDuplicateContacts_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addContact(t, s, "7771234", "")
	addContact(t, s, "+9607771234", "")
	addContact(t, s, "9991234", "")

	if _, err := MergeDuplicateContacts(ctx, s); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	res, err := MergeDuplicateContacts(ctx, s)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if res.Updated != 0 || res.Errors != 0 {
		t.Errorf("second pass should change nothing: %+v", res)
	}
	if res.Skipped != res.Examined {
		t.Errorf("every contact should already be canonical: %+v", res)
	}
}
