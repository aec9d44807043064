package web

// export.go streams a dataset as a CSV or XLSX download. Exports are
// deliberately unpaginated; the exportLimit cap only guards against a
// runaway result set.

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/moyshiginzburg/atelier/db"
)

// exportLimit caps the number of exported records.
const exportLimit = 100000

// Export datasets and formats.
const (
	datasetCustomers    = "customers"
	datasetDresses      = "dresses"
	datasetOrders       = "orders"
	datasetTransactions = "transactions"

	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// ExportForm selects the dataset, output format and filters of an
// export.
type ExportForm struct {
	Dataset  string `schema:"dataset"`
	Format   string `schema:"format"`
	Status   string `schema:"status"`
	DateFrom string `schema:"dateFrom"`
	DateTo   string `schema:"dateTo"`
	Search   string `schema:"search"`
}

func (f *ExportForm) Validate(v *Validator) {
	if f.Format == "" {
		f.Format = formatCSV
	}
	v.Check(oneOf(f.Dataset, datasetCustomers, datasetDresses, datasetOrders, datasetTransactions),
		"dataset", "unknown dataset")
	v.Check(f.Dataset != "", "dataset", "must be provided")
	v.Check(oneOf(f.Format, formatCSV, formatXLSX), "format", "must be csv or xlsx")
	v.Check(optionalDate(f.DateFrom), "dateFrom", "must be a date in YYYY-MM-DD form")
	v.Check(optionalDate(f.DateTo), "dateTo", "must be a date in YYYY-MM-DD form")
}

// handleExport serves a dataset download with a Content-Disposition
// filename.
func (web *WebApp) handleExport() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &ExportForm{}
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

		var header []string
		var rows [][]string
		var err error
		switch form.Dataset {
		case datasetCustomers:
			header, rows, err = web.exportCustomers(ctx, form)
		case datasetDresses:
			header, rows, err = web.exportDresses(ctx, form)
		case datasetOrders:
			header, rows, err = web.exportOrders(ctx, form)
		case datasetTransactions:
			header, rows, err = web.exportTransactions(ctx, form)
		}
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		filename := fmt.Sprintf("%s-%s.%s", form.Dataset, today(), form.Format)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

		switch form.Format {
		case formatXLSX:
			err = writeXLSX(w, header, rows)
		default:
			err = writeCSV(w, header, rows)
		}
		if err != nil {
			// The response is already partly written; log only.
			web.log.Error("export write failed", "dataset", form.Dataset, "error", err)
		}
	})
}

func (web *WebApp) exportCustomers(ctx context.Context, form *ExportForm) ([]string, [][]string, error) {
	customers, err := web.db.CustomersGet(ctx, form.Search, exportLimit, 0)
	if err != nil {
		return nil, nil, err
	}
	header := []string{"id", "name", "phone", "email", "source", "notes", "created_at"}
	rows := make([][]string, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10), c.Name, c.Phone, c.Email, c.Source, c.Notes, c.CreatedAt,
		})
	}
	return header, rows, nil
}

func (web *WebApp) exportDresses(ctx context.Context, form *ExportForm) ([]string, [][]string, error) {
	dresses, err := web.db.DressesGet(ctx, form.Status, "", form.Search, exportLimit, 0)
	if err != nil {
		return nil, nil, err
	}
	header := []string{
		"id", "name", "base_price", "status", "intended_use",
		"rental_count", "total_income", "notes", "created_at",
	}
	rows := make([][]string, 0, len(dresses))
	for _, d := range dresses {
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10), d.Name, money(d.BasePrice), d.Status, d.IntendedUse,
			strconv.Itoa(d.RentalCount), money(d.TotalIncome), d.Notes, d.CreatedAt,
		})
	}
	return header, rows, nil
}

func (web *WebApp) exportOrders(ctx context.Context, form *ExportForm) ([]string, [][]string, error) {
	filter := db.OrdersFilter{
		Status:     form.Status,
		DateFrom:   form.DateFrom,
		DateTo:     form.DateTo,
		TextSearch: form.Search,
	}
	orders, err := web.db.OrdersGet(ctx, filter, exportLimit, 0)
	if err != nil {
		return nil, nil, err
	}
	header := []string{
		"id", "customer", "phone", "event_date", "summary",
		"total_price", "deposit_amount", "paid_amount", "status", "created_at",
	}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10), o.CustomerName, o.CustomerPhone, o.EventDate, o.OrderSummary,
			money(o.TotalPrice), money(o.DepositAmount), money(o.PaidAmount), o.Status, o.CreatedAt,
		})
	}
	return header, rows, nil
}

func (web *WebApp) exportTransactions(ctx context.Context, form *ExportForm) ([]string, [][]string, error) {
	filter := db.TransactionsFilter{
		DateFrom: form.DateFrom,
		DateTo:   form.DateTo,
	}
	transactions, err := web.db.TransactionsGet(ctx, filter, exportLimit, 0)
	if err != nil {
		return nil, nil, err
	}
	header := []string{
		"id", "direction", "amount", "date", "category",
		"description", "customer", "created_at",
	}
	rows := make([][]string, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10), t.Direction, money(t.Amount), t.Date, t.Category,
			t.Description, t.CustomerName, t.CreatedAt,
		})
	}
	return header, rows, nil
}

// writeCSV streams header and rows as CSV.
func writeCSV(w http.ResponseWriter, header []string, rows [][]string) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeXLSX streams header and rows as a single-sheet workbook.
func writeXLSX(w http.ResponseWriter, header []string, rows [][]string) error {
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		cells := make([]any, len(row))
		for j, value := range row {
			cells[j] = value
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// money formats a monetary figure with two decimal places.
func money(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
