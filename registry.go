package vidfetch

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

type MatchFunc = func(string) (Extractor, error)

// A Backend matches any URL it knows how to handle, giving an Extractor that
// can probe and fetch the video.
type Backend struct {
	Name  string
	Match MatchFunc
	// Priority of the matcher, lower (including negative) means matching earlier.
	Priority int16
}

func (b Backend) WithName(name string) Backend {
	b.Name = name
	return b
}

func (b Backend) WithPriority(priority int16) Backend {
	b.Priority = priority
	return b
}

// A Match is the result of a Backend successfully matching a URL.
type Match struct {
	BackendName string
	Extractor   Extractor
}

// A Registry is a collection of Backend instances which can be used to try to
// match URLs.
type Registry struct {
	backends   []*Backend
	backendMap map[string]*Backend
}

// Add registers a Backend with the Registry. Backend.Name and Backend.Match
// must be set, and Backend.Name must be unique within the Registry.
func (r *Registry) Add(b Backend) error {
	if r.backendMap == nil {
		r.backendMap = make(map[string]*Backend)
	}
	if b.Name == "" || b.Match == nil {
		return ErrInvalidBackend
	}
	if _, ok := r.backendMap[b.Name]; ok {
		return ErrDuplicateBackend
	}
	r.backendMap[b.Name] = &b
	r.backends = append(r.backends, r.backendMap[b.Name])
	r.sortByPriority()
	return nil
}

// Create is a shortcut for Add(Backend{Name: ..., Match: ...}).
func (r *Registry) Create(name string, f MatchFunc) error {
	return r.Add(Backend{
		Name:  name,
		Match: f,
	})
}

// CreatePriority is a shortcut for Add(Backend{Name: ..., Match: ..., Priority: ...}).
func (r *Registry) CreatePriority(name string, f MatchFunc, priority int16) error {
	return r.Add(Backend{
		Name:     name,
		Match:    f,
		Priority: priority,
	})
}

// List returns the names of registered backends in priority order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.backends))
	for _, b := range r.backends {
		names = append(names, b.Name)
	}
	return names
}

// Match a URL against each Backend in priority order, or return ErrNoMatch
// wrapped with each backend's reason for declining.
func (r *Registry) Match(s string) (*Match, error) {
	var reasons error
	for _, b := range r.backends {
		if extractor, err := b.Match(s); extractor != nil && err == nil {
			return &Match{
				BackendName: b.Name,
				Extractor:   extractor,
			}, nil
		} else {
			reasons = multierror.Append(reasons, multierror.Prefix(err, fmt.Sprintf("[%v]", b.Name)))
		}
	}
	return nil, multierror.Append(ErrNoMatch, reasons)
}

// MatchWith will attempt to match a URL against a specific backend.
func (r *Registry) MatchWith(name string, s string) (*Match, error) {
	b, ok := r.backendMap[name]
	if !ok {
		return nil, ErrUnknownBackend
	}
	extractor, err := b.Match(s)
	if extractor == nil || err != nil {
		return nil, ErrNoMatch
	}
	return &Match{
		BackendName: b.Name,
		Extractor:   extractor,
	}, nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *Registry) MustAdd(b Backend) {
	if err := r.Add(b); err != nil {
		panic(err)
	}
}

// MustCreate wraps Create but panics if there is an error.
func (r *Registry) MustCreate(name string, f MatchFunc) {
	if err := r.Create(name, f); err != nil {
		panic(err)
	}
}

// MustCreatePriority wraps CreatePriority but panics if there is an error.
func (r *Registry) MustCreatePriority(name string, f MatchFunc, priority int16) {
	if err := r.CreatePriority(name, f, priority); err != nil {
		panic(err)
	}
}

// SetPriority adjusts the priority of a named Backend.
func (r *Registry) SetPriority(name string, priority int16) error {
	if b, ok := r.backendMap[name]; ok {
		b.Priority = priority
		r.sortByPriority()
		return nil
	}
	return ErrUnknownBackend
}

func (r *Registry) sortByPriority() {
	sort.SliceStable(r.backends, func(i, j int) bool {
		return r.backends[i].Priority < r.backends[j].Priority
	})
}

var DefaultRegistry Registry
