// Package jsonfile implements the legacy JSON-file mailbox format. It
// predates the indexed SQLite store and survives for reading old mailboxes
// and as a dependency-free fallback; search is a linear scan rather than a
// full-text index. Migration replays its contents through the SQLite store.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shapescale/dialbox/internal/domain"
)

// record is the on-disk message shape. Field names match the legacy Python
// tooling that wrote these files.
type record struct {
	ID        string `json:"id"`
	Contact   string `json:"contact"`
	Direction string `json:"direction"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

type mailbox struct {
	Messages []record `json:"messages"`
}

// Store is a whole-file JSON mailbox. Every write rewrites the file through
// a temp-file rename, so readers never observe a torn mailbox.
type Store struct {
	path string

	mu   sync.Mutex
	byID map[string]int
	msgs []record
}

// Open loads the mailbox at path, creating an empty one if the file does not
// exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path, byID: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read mailbox file: %w", err)
	}

	var mb mailbox
	if err := json.Unmarshal(data, &mb); err != nil {
		return nil, fmt.Errorf("failed to parse mailbox file: %w", err)
	}
	s.msgs = mb.Messages
	for i, r := range s.msgs {
		s.byID[r.ID] = i
	}
	return s, nil
}

// UpsertMessage appends a message unless its ID is already present.
func (s *Store) UpsertMessage(ctx context.Context, msg *domain.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[msg.ID]; exists {
		return false, nil
	}

	s.msgs = append(s.msgs, record{
		ID:        msg.ID,
		Contact:   msg.Contact,
		Direction: string(msg.Direction),
		Text:      msg.Body,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
		Read:      msg.Read,
	})
	s.byID[msg.ID] = len(s.msgs) - 1

	if err := s.persist(); err != nil {
		// Roll the in-memory state back so memory and disk stay in step.
		s.msgs = s.msgs[:len(s.msgs)-1]
		delete(s.byID, msg.ID)
		return false, err
	}
	return true, nil
}

// MarkRead flags all unread messages for the contact as read.
func (s *Store) MarkRead(ctx context.Context, contact string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped []int
	for i := range s.msgs {
		if s.msgs[i].Contact == contact && !s.msgs[i].Read {
			s.msgs[i].Read = true
			flipped = append(flipped, i)
		}
	}
	if len(flipped) == 0 {
		return 0, nil
	}

	if err := s.persist(); err != nil {
		for _, i := range flipped {
			s.msgs[i].Read = false
		}
		return 0, err
	}
	return len(flipped), nil
}

// ListConversations computes per-contact summaries by scanning the mailbox.
func (s *Store) ListConversations(ctx context.Context) ([]domain.ContactSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byContact := map[string]*domain.ContactSummary{}
	for _, r := range s.msgs {
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		cs, ok := byContact[m.Contact]
		if !ok {
			cs = &domain.ContactSummary{Contact: m.Contact}
			byContact[m.Contact] = cs
		}
		cs.MessageCount++
		if !m.Read {
			cs.UnreadCount++
		}
		if m.Timestamp.After(cs.LastMessage) {
			cs.LastMessage = m.Timestamp
		}
	}

	summaries := make([]domain.ContactSummary, 0, len(byContact))
	for _, cs := range byContact {
		summaries = append(summaries, *cs)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastMessage.Equal(summaries[j].LastMessage) {
			return summaries[i].LastMessage.After(summaries[j].LastMessage)
		}
		return summaries[i].Contact < summaries[j].Contact
	})
	return summaries, nil
}

// GetThread returns the contact's messages in ascending timestamp order.
func (s *Store) GetThread(ctx context.Context, contact string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := []domain.Message{}
	for _, r := range s.msgs {
		if r.Contact != contact {
			continue
		}
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		thread = append(thread, *m)
	}
	sort.Slice(thread, func(i, j int) bool {
		if !thread[i].Timestamp.Equal(thread[j].Timestamp) {
			return thread[i].Timestamp.Before(thread[j].Timestamp)
		}
		return thread[i].ID < thread[j].ID
	})
	return thread, nil
}

// Search performs a case-insensitive substring scan over message bodies.
// Results come back in timestamp order; this format has no relevance index.
func (s *Store) Search(ctx context.Context, query string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	results := []domain.Message{}
	if needle == "" {
		return results, nil
	}

	for _, r := range s.msgs {
		if r.Text == "" || !strings.Contains(strings.ToLower(r.Text), needle) {
			continue
		}
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		results = append(results, *m)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})
	return results, nil
}

// Stats scans the mailbox for aggregate counts.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := map[string]struct{}{}
	st := &domain.Stats{Messages: len(s.msgs)}
	for _, r := range s.msgs {
		contacts[r.Contact] = struct{}{}
		if !r.Read {
			st.Unread++
		}
	}
	st.Contacts = len(contacts)
	return st, nil
}

// All returns every message in file order, for migration replay.
func (s *Store) All(ctx context.Context) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]domain.Message, 0, len(s.msgs))
	for _, r := range s.msgs {
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

// Close persists nothing; writes are flushed as they happen.
func (s *Store) Close() error {
	return nil
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(mailbox{Messages: s.msgs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mailbox: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mailbox-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp mailbox file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write mailbox file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close mailbox file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace mailbox file: %w", err)
	}
	return nil
}

func (r record) toDomain() (*domain.Message, error) {
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp for message %s: %w", r.ID, err)
	}
	return &domain.Message{
		ID:        r.ID,
		Contact:   r.Contact,
		Direction: domain.Direction(r.Direction),
		Body:      r.Text,
		Timestamp: ts,
		Read:      r.Read,
	}, nil
}
