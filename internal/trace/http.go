package trace

import "net/http"

// Middleware continues the caller's run from request headers, or starts one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := FromMap(map[string]string{
			RunIDKey:  r.Header.Get(RunIDKey),
			SpanIDKey: r.Header.Get(SpanIDKey),
		})
		w.Header().Set(RunIDKey, tc.RunID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}
