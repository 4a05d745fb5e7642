package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/straye-as/quotebook-api/internal/repository"
)

// documentQuery reads the shared list parameters of quotations and invoices
func documentQuery(w http.ResponseWriter, r *http.Request) (repository.DocumentFilters, repository.SortConfig, bool) {
	q := r.URL.Query()
	filters := repository.DocumentFilters{
		Search: q.Get("search"),
		Status: q.Get("status"),
	}
	if raw := q.Get("customerId"); raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid customerId format")
			return filters, repository.SortConfig{}, false
		}
		filters.CustomerID = &customerID
	}

	sort := repository.DefaultSortConfig()
	if field := q.Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := q.Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}
	return filters, sort, true
}

// respondPDF writes a rendered document as an attachment
func respondPDF(w http.ResponseWriter, filename string, content []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
