package router

import (
	"net/http"
	"strings"

	"coupon-intake/internal/handler"
	"coupon-intake/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(couponHandler *handler.CouponHandler, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Coupon handler function
	couponRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		// Submission endpoint
		if r.Method == http.MethodPost && (r.URL.Path == "/api/coupons" || r.URL.Path == "/api/coupons/") {
			couponHandler.Create(w, r)
			return
		}

		// Lookup by code44
		if strings.HasPrefix(r.URL.Path, "/api/coupons/") && r.URL.Path != "/api/coupons/" {
			couponHandler.GetByCode44(w, r)
			return
		}

		http.Error(w, "not found", http.StatusNotFound)
	}

	// Register coupon routes (both with and without trailing slash)
	mux.HandleFunc("/api/coupons", couponRouteHandler)
	mux.HandleFunc("/api/coupons/", couponRouteHandler)

	// Apply middleware in order: Recovery -> Logging -> CORS
	var h http.Handler = mux
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
