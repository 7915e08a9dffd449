package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/synheart/synheart-stress/internal/generator"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
)

// ErrUnknownProfile is returned for a profile name that is not registered.
var ErrUnknownProfile = errors.New("unknown profile")

// ProfileInfo describes a selectable profile.
type ProfileInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Windowed    bool   `json:"windowed"`
}

// Service is the request/response boundary of the pipeline. The state's own
// profile is served from the shared window; any other registered profile
// gets an independent ProfileSource.
type Service struct {
	state    *State
	registry *profile.Registry
	seed     int64

	mu    sync.Mutex
	named map[string]*ProfileSource
}

// NewService serves state plus the profiles in registry.
func NewService(state *State, registry *profile.Registry, seed int64) *Service {
	return &Service{
		state:    state,
		registry: registry,
		seed:     seed,
		named:    make(map[string]*ProfileSource),
	}
}

// Current returns the latest snapshot for name. An empty name selects the
// windowed pipeline.
func (s *Service) Current(name string) (models.Snapshot, error) {
	if name == "" || name == s.state.Profile() {
		return s.state.Current(), nil
	}

	src, err := s.profileSource(name)
	if err != nil {
		return models.Snapshot{}, err
	}
	return src.Current(), nil
}

func (s *Service) profileSource(name string) (*ProfileSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := s.named[name]; ok {
		return src, nil
	}

	p, err := s.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}

	// Key by the registry's own name: callers may pass strings backed by
	// buffers they later reuse.
	gen := generator.NewSeeded(profile.NewEngine(p, s.state.clock()), s.seed)
	src := newProfileSource(p.Name, gen, s.state.eval, s.state.clock)
	s.named[p.Name] = src
	return src, nil
}

// History returns the shared window, oldest first.
func (s *Service) History() []models.Snapshot {
	return s.state.History()
}

// Range returns the shared window entries within d of now.
func (s *Service) Range(d time.Duration) []models.Snapshot {
	return s.state.Range(d)
}

// Trend analyses the stress percentage over the last d.
func (s *Service) Trend(d time.Duration) models.TrendResult {
	return s.state.Trend(d)
}

// Profiles lists the selectable profiles.
func (s *Service) Profiles() []ProfileInfo {
	descs := s.registry.ListWithDescriptions()
	out := make([]ProfileInfo, 0, len(descs))
	for _, name := range s.registry.List() {
		out = append(out, ProfileInfo{
			Name:        name,
			Description: descs[name],
			Windowed:    name == s.state.Profile(),
		})
	}
	return out
}

// State returns the windowed pipeline.
func (s *Service) State() *State {
	return s.state
}
