// Package queue holds the in-memory roster and its Waiting/Called partition.
package queue

import (
	"fmt"
	"strings"
	"sync"

	"clinic-call-queue/internal/models"
)

// Store is the authoritative roster. Entries keep their arrival order for the
// whole session; status is the only field that ever changes.
type Store struct {
	mu     sync.RWMutex
	roster []models.Patient
	byName map[string]int
}

func NewStore() *Store {
	return &Store{byName: make(map[string]int)}
}

// Initialize replaces the roster. Every entry starts as Waiting.
// A roster with a blank or duplicated name is rejected and the store is left unchanged.
func (s *Store) Initialize(roster []models.Patient) error {
	entries := make([]models.Patient, len(roster))
	index := make(map[string]int, len(roster))

	for i, p := range roster {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidRoster, i)
		}
		if _, dup := index[p.Name]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRoster, p.Name)
		}
		p.Status = models.StatusWaiting
		entries[i] = p
		index[p.Name] = i
	}

	s.mu.Lock()
	s.roster = entries
	s.byName = index
	s.mu.Unlock()
	return nil
}

// WaitingList returns the waiting patients in arrival order
func (s *Store) WaitingList() []models.Patient {
	return s.filter(models.StatusWaiting)
}

// CalledList returns the called patients in arrival order
func (s *Store) CalledList() []models.Patient {
	return s.filter(models.StatusCalled)
}

func (s *Store) filter(status models.Status) []models.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Patient, 0, len(s.roster))
	for _, p := range s.roster {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// FirstWaiting returns the earliest-arrival waiting patient.
// Priority is deliberately not consulted.
func (s *Store) FirstWaiting() (models.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.roster {
		if p.Status == models.StatusWaiting {
			return p, true
		}
	}
	return models.Patient{}, false
}

// Get looks a patient up by name
func (s *Store) Get(name string) (models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byName[name]
	if !ok {
		return models.Patient{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.roster[i], nil
}

// Counts returns the size of each partition
func (s *Store) Counts() (waiting, called int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.roster {
		if p.Status == models.StatusWaiting {
			waiting++
		} else {
			called++
		}
	}
	return waiting, called
}

// MarkCalled moves a patient from Waiting to Called
func (s *Store) MarkCalled(name string) error {
	return s.transition(name, models.StatusWaiting, models.StatusCalled)
}

// MarkWaiting moves a patient from Called back to Waiting
func (s *Store) MarkWaiting(name string) error {
	return s.transition(name, models.StatusCalled, models.StatusWaiting)
}

func (s *Store) transition(name string, from, to models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if s.roster[i].Status != from {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidState, name, s.roster[i].Status, from)
	}
	s.roster[i].Status = to
	return nil
}
