package analytichttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/plugtech/findash/internal/platform/httpx"
)

// MountRoutes registers the report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondError(w, fmt.Errorf("%w: export rate limit reached", httpx.ErrTooManyRequests))
		}),
	)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/"+PageCashFlow, h.handlePage(PageCashFlow))
		r.Get("/"+PageDelinquency, h.handlePage(PageDelinquency))
		r.Get("/"+PageOverview, h.handlePage(PageOverview))
		r.Get("/"+PageReceivables, h.handlePage(PageReceivables))
		r.Get("/"+PagePayables, h.handlePage(PagePayables))
		r.Get("/overview/{chart}.svg", h.handleOverviewChart)
		r.Get("/delinquency/trend.svg", h.handleDelinquencyChart)

		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/{page}/export.xlsx", h.handleXLSX)
			gr.Get("/{page}/export.csv", h.handleCSV)
			gr.Get("/overview/summary.pdf", h.handleSummaryPDF)
		})
	})

	r.Route("/admin/cache", func(r chi.Router) {
		r.Post("/warmup", h.handleWarmup)
		r.Post("/invalidate", h.handleInvalidate)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
