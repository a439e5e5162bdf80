// Package stack holds the ordered, reversible log of classification decisions
// that have not yet been applied to storage. It is process-lifetime only: a
// restart clears all pending decisions, which is safe because none of them
// reflect a committed filesystem change.
package stack

import (
	"sync"
	"time"

	"github.com/lewtec/triador/internal/domain"
)

// Stack is a strict last-in-first-out undo log of pending actions. Image
// names are unique across the stack: an image already pending cannot be
// queued again.
type Stack struct {
	mu      sync.Mutex
	actions []domain.PendingAction
	now     func() time.Time
}

// New creates an empty action stack.
func New() *Stack {
	return &Stack{now: time.Now}
}

// Push appends an action to the top of the stack. It fails with
// ErrAlreadyPending when the image is already queued.
func (s *Stack) Push(imageName, targetFolder string) (domain.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actions {
		if a.ImageName == imageName {
			return domain.PendingAction{}, domain.ErrAlreadyPending
		}
	}
	action := domain.PendingAction{
		ImageName:    imageName,
		TargetFolder: targetFolder,
		RecordedAt:   s.now(),
	}
	s.actions = append(s.actions, action)
	return action, nil
}

// Pop removes and returns the most recently pushed action. This is undo: the
// file never moved, so popping has no storage side effect.
func (s *Stack) Pop() (domain.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return domain.PendingAction{}, domain.ErrEmptyStack
	}
	last := s.actions[len(s.actions)-1]
	s.actions = s.actions[:len(s.actions)-1]
	return last, nil
}

// PeekAll returns a copy of the pending actions, oldest first.
func (s *Stack) PeekAll() []domain.PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PendingAction, len(s.actions))
	copy(out, s.actions)
	return out
}

// Drain returns all pending actions in insertion order and clears the stack.
// Only commit calls this; once drained, actions are never re-inserted.
func (s *Stack) Drain() []domain.PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.actions
	s.actions = nil
	return out
}

// Contains reports whether an image already has a pending action.
func (s *Stack) Contains(imageName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actions {
		if a.ImageName == imageName {
			return true
		}
	}
	return false
}

// CountFor returns how many pending actions target the given folder.
func (s *Stack) CountFor(folder string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.actions {
		if a.TargetFolder == folder {
			n++
		}
	}
	return n
}

// Len returns the number of pending actions.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}
