package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"sales-kpi-dashboard/internal/errors"
	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/services"
)

const (
	uploadField     = "file"
	multipartMemory = 8 << 20

	regionParam   = "region"
	categoryParam = "category"
)

// ParseSelection reads repeated region and category query parameters. An
// absent parameter selects every value of that dimension; a parameter that
// is present but carries no values selects nothing. Values unknown to the
// table are dropped.
func ParseSelection(q url.Values, table *models.SalesTable) models.FilterSelection {
	def := services.DefaultSelection(table)
	return services.SanitizeSelection(table, models.FilterSelection{
		Regions:    queryValues(q, regionParam, def.Regions),
		Categories: queryValues(q, categoryParam, def.Categories),
	})
}

func queryValues(q url.Values, key string, fallback []string) []string {
	values, ok := q[key]
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type upload struct {
	file     multipart.File
	filename string
}

// readUpload extracts the multipart file field, bounded by limit bytes. The
// caller must close the returned file.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, errors.TooLarge(fmt.Sprintf("Upload exceeds the limit of %d bytes", limit))
		}
		return nil, errors.BadRequest("Expected a multipart form with a file field")
	}

	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return nil, errors.BadRequest(fmt.Sprintf("Missing form field %q", uploadField))
	}
	return &upload{file: f, filename: hdr.Filename}, nil
}

// ingestError classifies an ingestion failure for the HTTP edge.
func ingestError(err error) *errors.AppError {
	var (
		schemaErr *services.SchemaError
		dateErr   *services.DateFormatError
		parseErr  *services.ParseError
	)
	switch {
	case stderrors.As(err, &schemaErr):
		return errors.Ingestion(err, errors.CodeSchema)
	case stderrors.As(err, &dateErr):
		return errors.Ingestion(err, errors.CodeDateFormat)
	case stderrors.As(err, &parseErr):
		return errors.Ingestion(err, errors.CodeParse)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.InternalWrap(err, "Upload processing was interrupted")
	default:
		return errors.InternalWrap(err, "Failed to process upload")
	}
}

func asAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// userMessage is the text shown in the page's error banner.
func userMessage(err error) string {
	if appErr := asAppError(err); appErr != nil {
		if appErr.Details != "" {
			return appErr.Details
		}
		return appErr.Message
	}
	return "An unexpected error occurred"
}
