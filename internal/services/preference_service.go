package services

import (
	"context"
	"log"
	"strings"
	"sync"
)

const themePreferenceKey = "theme"

// PreferenceServiceImpl implements PreferenceService. Reads are served
// from memory after the first load; writes go through to the store.
type PreferenceServiceImpl struct {
	repo         PreferenceRepository
	defaultTheme string
	logger       *log.Logger

	mu       sync.Mutex
	loaded   bool
	theme    string
	sections map[string]bool
}

// NewPreferenceService creates the preference service
func NewPreferenceService(repo PreferenceRepository, defaultTheme string) *PreferenceServiceImpl {
	if defaultTheme == "" {
		defaultTheme = "default"
	}
	return &PreferenceServiceImpl{
		repo:         repo,
		defaultTheme: defaultTheme,
		sections:     make(map[string]bool),
	}
}

// SetLogger sets the logger for debug output
func (s *PreferenceServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *PreferenceServiceImpl) load(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	s.theme = s.defaultTheme
	if s.repo == nil {
		return
	}
	if theme, ok, err := s.repo.GetPreference(ctx, themePreferenceKey); err != nil {
		s.logf("load theme preference: %v", err)
	} else if ok && theme != "" {
		s.theme = theme
	}
	if states, err := s.repo.SectionStates(ctx); err != nil {
		s.logf("load section states: %v", err)
	} else {
		for id, expanded := range states {
			s.sections[id] = expanded
		}
	}
}

// Theme returns the chosen theme, or the default when none is stored
func (s *PreferenceServiceImpl) Theme(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	return s.theme
}

// SetTheme stores the theme choice
func (s *PreferenceServiceImpl) SetTheme(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidInput("theme name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	if s.repo != nil {
		if err := s.repo.SetPreference(ctx, themePreferenceKey, name); err != nil {
			return err
		}
	}
	s.theme = name
	return nil
}

// SectionExpanded reports whether a navigation section is expanded.
// Sections are expanded until the user collapses them.
func (s *PreferenceServiceImpl) SectionExpanded(ctx context.Context, sectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	expanded, ok := s.sections[sectionID]
	return !ok || expanded
}

// SetSectionExpanded stores a navigation section's expansion state
func (s *PreferenceServiceImpl) SetSectionExpanded(ctx context.Context, sectionID string, expanded bool) error {
	if strings.TrimSpace(sectionID) == "" {
		return invalidInput("section id cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	if s.repo != nil {
		if err := s.repo.SetSectionState(ctx, sectionID, expanded); err != nil {
			return err
		}
	}
	s.sections[sectionID] = expanded
	return nil
}

func (s *PreferenceServiceImpl) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
