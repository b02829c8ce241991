package correct

import (
	"context"
	"testing"
	"time"

	"github.com/hallamw/commlog/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addContact(t *testing.T, s store.Store, phoneNumber, name string) int64 {
	t.Helper()
	id, err := s.CreateContact(context.Background(), &store.Contact{
		PhoneNumber: phoneNumber,
		Name:        name,
	})
	if err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}
	return id
}

func addMessage(t *testing.T, s store.Store, m *store.Message) int64 {
	t.Helper()
	if m.MessageType == "" {
		m.MessageType = store.TypeSMS
	}
	id, err := s.AddMessage(context.Background(), m)
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	return id
}

func ts(hour, min int) time.Time {
	return time.Date(2014, 6, 5, hour, min, 0, 0, time.UTC)
}
