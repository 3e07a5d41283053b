package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/chainsim/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource
// Sharing and answers preflight requests directly. The simulator API only
// serves GET and POST, so that is all that is advertised.
func Cors(origins ...string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Resolve the origin this request is allowed to use, if any.
			var allowed string
			origin := r.Header.Get("Origin")
			for _, o := range origins {
				if o == "*" || o == origin {
					allowed = o
					break
				}
			}

			if allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type")
			}

			// A preflight request is complete at this point; don't run the
			// route handler.
			if r.Method == http.MethodOptions {
				return web.Respond(ctx, w, nil, http.StatusNoContent)
			}

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
