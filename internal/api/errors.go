package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/dispatch"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
	"github.com/openimis/imis-fhir/internal/platform/middleware"
	"github.com/openimis/imis-fhir/internal/retriever"
	"github.com/openimis/imis-fhir/internal/store"
	"github.com/openimis/imis-fhir/internal/subscription"
)

// IssueTypeMultipleMatches is the OperationOutcome code of an identifier
// found under more than one record type.
const IssueTypeMultipleMatches = "multiple-matches"

// ParameterError reports a query parameter that cannot be used.
type ParameterError struct {
	Name string
	Err  error
}

func (e *ParameterError) Error() string { return fmt.Sprintf("invalid %s: %v", e.Name, e.Err) }

func (e *ParameterError) Unwrap() error { return e.Err }

// errorClass groups errors for logging.
type errorClass string

const (
	classValidation errorClass = "validation"
	classUsage      errorClass = "usage"
	classNotFound   errorClass = "not_found"
	classServer     errorClass = "server"
)

// errorOutcome maps err to a status and an OperationOutcome. Unknown errors
// are reported without their text.
func errorOutcome(err error) (int, *fhir.OperationOutcome, errorClass) {
	var (
		httpErr  *echo.HTTPError
		param    *ParameterError
		schema   *fhir.SchemaError
		attach   *converter.AttachmentError
		conv     *converter.ConversionError
		process  *converter.RequestProcessError
		sub      *subscription.ValidationError
		unsup    *converter.UnsupportedReferenceTypeError
		conflict *dispatch.ConfigurationError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpOutcome(httpErr)
	case errors.As(err, &param):
		return http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeValue, param.Error()), classValidation
	case errors.As(err, &schema):
		return http.StatusBadRequest, &fhir.OperationOutcome{ResourceType: "OperationOutcome", Issue: schema.Issues}, classValidation
	case errors.As(err, &attach):
		return http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeValue, attach.Error()), classValidation
	case errors.As(err, &conv):
		return http.StatusUnprocessableEntity, fhir.ErrorOutcome(conv.Error()), classValidation
	case errors.As(err, &process):
		return http.StatusBadRequest, fhir.OutcomeFromMessages(fhir.IssueTypeInvalid, process.Messages), classValidation
	case errors.As(err, &sub):
		return http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, sub.Error()), classValidation
	case errors.As(err, &unsup):
		return http.StatusBadRequest, fhir.NotSupportedOutcome(unsup.Error()), classUsage
	case errors.Is(err, converter.ErrNotImplemented):
		return http.StatusMethodNotAllowed, fhir.NotSupportedOutcome(err.Error()), classUsage
	case errors.Is(err, dispatch.ErrNoEligibleSerializer):
		return http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, err.Error()), classUsage
	case errors.Is(err, dispatch.ErrAmbiguousIdentifier):
		return http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, IssueTypeMultipleMatches, err.Error()), classUsage
	case errors.As(err, &conflict):
		return http.StatusInternalServerError, fhir.InternalErrorOutcome(conflict.Error()), classServer
	case errors.Is(err, retriever.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeNotFound, err.Error()), classNotFound
	}
	return http.StatusInternalServerError, fhir.InternalErrorOutcome("internal server error"), classServer
}

func httpOutcome(he *echo.HTTPError) (int, *fhir.OperationOutcome, errorClass) {
	msg := fmt.Sprint(he.Message)
	code, class := fhir.IssueTypeProcessing, classUsage
	switch he.Code {
	case http.StatusUnauthorized:
		code = fhir.IssueTypeLogin
	case http.StatusForbidden:
		code = fhir.IssueTypeSecurity
	case http.StatusNotFound:
		code, class = fhir.IssueTypeNotFound, classNotFound
	case http.StatusMethodNotAllowed:
		code = fhir.IssueTypeNotSupported
	case http.StatusRequestEntityTooLarge:
		code = middleware.IssueTypeTooCostly
	}
	if he.Code >= http.StatusInternalServerError {
		return he.Code, fhir.InternalErrorOutcome(msg), classServer
	}
	return he.Code, fhir.NewOperationOutcome(fhir.IssueSeverityError, code, msg), class
}

// fail logs err by class and writes its OperationOutcome.
func (h *Handler) fail(c echo.Context, err error) error {
	status, outcome, class := errorOutcome(err)
	h.logError(c.Request().Context(), err, status, class)
	return respond(c, status, outcome)
}

// failLookup is fail with a not-found outcome naming the addressed
// resource.
func (h *Handler) failLookup(c echo.Context, d *dispatch.Dispatcher, id string, err error) error {
	if errors.Is(err, retriever.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		h.logError(c.Request().Context(), err, http.StatusNotFound, classNotFound)
		return respond(c, http.StatusNotFound, fhir.NotFoundOutcome(d.ResourceType, id))
	}
	return h.fail(c, err)
}

func (h *Handler) logError(ctx context.Context, err error, status int, class errorClass) {
	log := h.logger(ctx)
	var evt *zerolog.Event
	switch class {
	case classServer:
		evt = log.Error()
	case classUsage:
		evt = log.Warn()
	case classValidation:
		evt = log.Info()
	default:
		evt = log.Debug()
	}
	evt.Err(err).Str("kind", string(class)).Int("status", status).Msg("request failed")
}

// HTTPErrorHandler renders errors that escape the handlers (routing,
// authentication, body limits) as OperationOutcomes.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, outcome, _ := errorOutcome(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = respond(c, status, outcome)
}
