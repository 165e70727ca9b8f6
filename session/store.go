package session

import (
	"sync"
	"time"

	"tryonapi/models"
)

// ImageSlot names one of the two intake positions of the form.
type ImageSlot string

const (
	SlotPerson ImageSlot = "person"
	SlotCloth  ImageSlot = "cloth"
)

func ParseSlot(raw string) (ImageSlot, bool) {
	switch ImageSlot(raw) {
	case SlotPerson:
		return SlotPerson, true
	case SlotCloth:
		return SlotCloth, true
	}
	return "", false
}

// Layout mirrors JS Date.toLocaleString, which the result cards display.
const timestampLayout = "1/2/2006, 3:04:05 PM"

type slotState struct {
	// generation grows per selection; a commit carrying a stale generation
	// is discarded so the preview never mismatches the held file.
	generation uint64
	image      *models.UploadedImage
	preview    string
}

type Visitor struct {
	slots        map[ImageSlot]*slotState
	submitting   bool
	results      []models.TryOnResult // newest first, the single authoritative log
	lastResultID int64
	lastActivity time.Time
}

// Store holds all per-visitor form state for the lifetime of the process.
// Nothing in here is ever written to durable storage.
type Store struct {
	mu       sync.Mutex
	visitors map[string]*Visitor
}

func NewStore() *Store {
	return &Store{visitors: make(map[string]*Visitor)}
}

// BeginUpload reserves the next generation for a slot. The caller performs
// the suspending read/encode step outside the lock and hands the number
// back to CommitUpload.
func (s *Store) BeginUpload(visitorID string, slot ImageSlot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.getOrCreateLocked(visitorID).slot(slot)
	state.generation++
	return state.generation
}

// CommitUpload installs a validated image and its preview. Returns false
// when a newer selection was started meanwhile; last selection wins.
func (s *Store) CommitUpload(visitorID string, slot ImageSlot, generation uint64, image *models.UploadedImage, preview string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.getOrCreateLocked(visitorID).slot(slot)
	if generation != state.generation {
		return false
	}
	state.image = image
	state.preview = preview
	return true
}

// ClearSlot removes the held image and preview, signaling "no image
// selected" for that slot.
func (s *Store) ClearSlot(visitorID string, slot ImageSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.getOrCreateLocked(visitorID).slot(slot)
	state.generation++
	state.image = nil
	state.preview = ""
}

func (s *Store) Preview(visitorID string, slot ImageSlot) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(visitorID).slot(slot).preview
}

// Images returns the two held files at submit time.
func (s *Store) Images(visitorID string) (person, cloth *models.UploadedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor := s.getOrCreateLocked(visitorID)
	return visitor.slot(SlotPerson).image, visitor.slot(SlotCloth).image
}

// BeginSubmit marks a submission in flight. Returns false when one already
// is, so a visitor can never run two concurrent submissions.
func (s *Store) BeginSubmit(visitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor := s.getOrCreateLocked(visitorID)
	if visitor.submitting {
		return false
	}
	visitor.submitting = true
	return true
}

func (s *Store) EndSubmit(visitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateLocked(visitorID).submitting = false
}

func (s *Store) Submitting(visitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(visitorID).submitting
}

// Record stamps a completed generation with a fresh identifier and
// timestamp and prepends it to the log, all under one lock so the current
// result and the history can never drift apart.
func (s *Store) Record(visitorID string, resultImage, text string) models.TryOnResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor := s.getOrCreateLocked(visitorID)
	now := time.Now()
	id := now.UnixMilli()
	if id <= visitor.lastResultID {
		id = visitor.lastResultID + 1
	}
	visitor.lastResultID = id

	result := models.TryOnResult{
		ID:          id,
		ResultImage: resultImage,
		Text:        text,
		Timestamp:   now.Format(timestampLayout),
	}
	visitor.results = append([]models.TryOnResult{result}, visitor.results...)
	return result
}

// Current returns the head of the log: the most recent result.
func (s *Store) Current(visitorID string) (models.TryOnResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor := s.getOrCreateLocked(visitorID)
	if len(visitor.results) == 0 {
		return models.TryOnResult{}, false
	}
	return visitor.results[0], true
}

// Gallery returns every result except the current one, newest first. Both
// views derive from the same log; neither is mutated independently.
func (s *Store) Gallery(visitorID string) []models.TryOnResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor := s.getOrCreateLocked(visitorID)
	if len(visitor.results) <= 1 {
		return []models.TryOnResult{}
	}
	gallery := make([]models.TryOnResult, len(visitor.results)-1)
	copy(gallery, visitor.results[1:])
	return gallery
}

// PruneIdle drops visitors inactive longer than maxIdle and reports how
// many were removed. Keeps the process bounded across many visitors; a
// visitor's own history is never evicted while they are active.
func (s *Store) PruneIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxIdle)
	for id, visitor := range s.visitors {
		if visitor.lastActivity.Before(cutoff) && !visitor.submitting {
			delete(s.visitors, id)
			removed++
		}
	}
	return removed
}

func (s *Store) getOrCreateLocked(visitorID string) *Visitor {
	if visitor, ok := s.visitors[visitorID]; ok {
		visitor.lastActivity = time.Now()
		return visitor
	}

	visitor := &Visitor{
		slots:        make(map[ImageSlot]*slotState),
		lastActivity: time.Now(),
	}
	s.visitors[visitorID] = visitor
	return visitor
}

func (v *Visitor) slot(slot ImageSlot) *slotState {
	if state, ok := v.slots[slot]; ok {
		return state
	}
	state := &slotState{}
	v.slots[slot] = state
	return state
}
