package wizard

import (
	"context"
	"strings"
)

// TranslationService resolves validation messages for a locale. Implementations
// can be backed by go-i18n or any catalogue; the wizard falls back to its
// built-in English messages when a key is unknown.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

type localeContextKey struct{}

// ContextWithLocale stores the viewer locale used for validation messages.
func ContextWithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, normalizeLocale(locale))
}

// LocaleFromContext returns the locale stored by ContextWithLocale.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return ""
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, params map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, params); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}
