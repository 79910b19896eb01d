package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"llmontreal/internal/pkg/logger"
	"llmontreal/internal/store"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(raw string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	}
	return "", false
}

type ThemeService struct {
	store store.Store
	theme *Observable[Theme]
}

// NewThemeService starts from the stored theme, falling back to the system
// preference. The starting theme is written back to the store.
func NewThemeService(ctx context.Context, st store.Store, prefersDark func() bool) *ThemeService {
	if prefersDark == nil {
		prefersDark = SystemPrefersDark
	}
	initial := ThemeLight
	raw, ok, err := st.Get(ctx, store.KeyTheme)
	if err != nil {
		logger.Warnf("read stored theme failed: %v", err)
	}
	if stored, valid := ParseTheme(raw); ok && valid {
		initial = stored
	} else if prefersDark() {
		initial = ThemeDark
	}

	s := &ThemeService{store: st, theme: NewObservable(initial)}
	if err := s.SetTheme(ctx, initial); err != nil {
		logger.Warnf("persist theme failed: %v", err)
	}
	return s
}

func (s *ThemeService) Theme() Theme {
	return s.theme.Get()
}

func (s *ThemeService) SetTheme(ctx context.Context, theme Theme) error {
	if _, ok := ParseTheme(string(theme)); !ok {
		return fmt.Errorf("%w: theme %q", ErrInvalidInput, theme)
	}
	s.theme.Set(theme)
	if err := s.store.Set(ctx, store.KeyTheme, string(theme)); err != nil {
		return fmt.Errorf("store theme failed: %w", err)
	}
	return nil
}

func (s *ThemeService) Toggle(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if s.Theme() == ThemeDark {
		next = ThemeLight
	}
	return next, s.SetTheme(ctx, next)
}

func (s *ThemeService) Subscribe(fn func(Theme)) (unsubscribe func()) {
	return s.theme.Subscribe(fn)
}

// SystemPrefersDark reads LLMONTREAL_THEME, then the COLORFGBG hint most
// terminals export ("fg;bg", dark backgrounds are 0-6 and 8).
func SystemPrefersDark() bool {
	if theme, ok := ParseTheme(os.Getenv("LLMONTREAL_THEME")); ok {
		return theme == ThemeDark
	}
	raw := os.Getenv("COLORFGBG")
	if raw == "" {
		return false
	}
	parts := strings.Split(raw, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return false
	}
	return (bg >= 0 && bg <= 6) || bg == 8
}
