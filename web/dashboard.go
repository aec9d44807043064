package web

// dashboard.go serves the aggregate figures behind the dashboard
// panels.

import (
	"net/http"
	"time"

	"github.com/moyshiginzburg/atelier/db"
)

// upcomingLimit is the number of upcoming orders shown on the
// dashboard.
const upcomingLimit = 10

// monthlyWindow is how far back the monthly totals reach.
const monthlyWindow = 12

// DashboardForm selects the monthly totals window, defaulting to the
// last twelve months.
type DashboardForm struct {
	DateFrom string `schema:"dateFrom"`
	DateTo   string `schema:"dateTo"`
}

func (f *DashboardForm) Validate(v *Validator) {
	v.Check(optionalDate(f.DateFrom), "dateFrom", "must be a date in YYYY-MM-DD form")
	v.Check(optionalDate(f.DateTo), "dateTo", "must be a date in YYYY-MM-DD form")
}

// handleDashboard serves the dashboard aggregates: monthly income and
// expense totals, upcoming event orders and dress status counts.
func (web *WebApp) handleDashboard() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &DashboardForm{}
		if err := DecodeURLParams(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		form.Validate(validator)
		if !validator.Valid() {
			web.invalid(w, validator)
			return
		}
		if form.DateTo == "" {
			form.DateTo = today()
		}
		if form.DateFrom == "" {
			form.DateFrom = time.Now().AddDate(0, -monthlyWindow, 0).Format("2006-01-02")
		}

		monthly, err := web.db.DashboardMonthly(ctx, form.DateFrom, form.DateTo)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		upcoming, err := web.db.UpcomingOrders(ctx, today(), upcomingLimit)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		dressCounts, err := web.db.DressStatusCounts(ctx)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		web.respondJSON(w, http.StatusOK, struct {
			Success     bool                  `json:"success"`
			Monthly     []db.MonthlyTotals    `json:"monthly"`
			Upcoming    []db.UpcomingOrder    `json:"upcoming"`
			DressCounts []db.DressStatusCount `json:"dressCounts"`
		}{
			Success:     true,
			Monthly:     monthly,
			Upcoming:    upcoming,
			DressCounts: dressCounts,
		})
	})
}
