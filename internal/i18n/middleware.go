package i18n

import "net/http"

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

// Middleware negotiates the UI language per request and injects a
// localizer for it. The query parameter wins over Accept-Language;
// fallback is the language Init was called with.
func Middleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query().Get(LangParam)
			accept := r.Header.Get("Accept-Language")

			ctx := WithLocalizer(r.Context(), NewLocalizer(query, accept, fallback))
			ctx = WithLang(ctx, Match(query, accept))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
