// Package api exposes the converters over the openIMIS FHIR R4 REST
// surface under /api_fhir_r4.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/contained"
	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/dispatch"
	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/auth"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
	"github.com/openimis/imis-fhir/internal/retriever"
	"github.com/openimis/imis-fhir/internal/store"
	"github.com/openimis/imis-fhir/internal/subscription"
	"github.com/openimis/imis-fhir/pkg/pagination"
)

// MIMEFHIRJSON is the content type of every response.
const MIMEFHIRJSON = "application/fhir+json"

// Options wires a Handler.
type Options struct {
	Dispatchers  map[string]*dispatch.Dispatcher
	Declarations map[string]contained.Declaration
	Registry     *converter.Registry
	Tables       *mapping.Tables
	Store        store.Repository
	// Subscriptions, when set, is consulted after every write.
	Subscriptions *subscription.Filter
	// BaseURL is the public URL of the FHIR root, used in links.
	BaseURL string
	// ReferenceType shapes references when the request names none.
	ReferenceType converter.ReferenceType
	// ContainedQualified writes contained ids as "Type/id".
	ContainedQualified bool
	// AuditUserID is stamped on writes by callers without one.
	AuditUserID int
	Now         func() time.Time
	Logger      zerolog.Logger
}

type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.ReferenceType == "" {
		opts.ReferenceType = converter.ReferenceUUID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Handler{opts: opts}
}

// RegisterRoutes mounts the FHIR routes on g. Writes require the editor
// role.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	editor := auth.RequireRole(auth.RoleEditor)
	for _, rt := range h.resourceTypes() {
		d := h.opts.Dispatchers[rt]
		p := "/" + rt
		g.GET(p, h.search(d))
		g.GET(p+"/:identifier", h.read(d))
		g.POST(p, h.create(d), editor)
		g.PUT(p+"/:identifier", h.update(d), editor)
		g.DELETE(p+"/:identifier", h.remove(d), editor)
	}
	g.GET("/metadata", h.Metadata)
	g.GET("/CodeSystem", h.ListCodeSystems)
	g.GET("/CodeSystem/:name", h.GetCodeSystem)
}

func (h *Handler) resourceTypes() []string {
	out := make([]string, 0, len(h.opts.Dispatchers))
	for rt := range h.opts.Dispatchers {
		out = append(out, rt)
	}
	sort.Strings(out)
	return out
}

func (h *Handler) search(d *dispatch.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		mode, err := h.referenceType(c)
		if err != nil {
			return h.fail(c, err)
		}
		req := dispatch.Request{Method: http.MethodGet, ResourceTypeParam: c.QueryParam("resourceType")}
		pg := pagination.FromContext(c)
		params := fhir.SearchBundleParams{
			BaseURL:  h.opts.BaseURL + "/" + d.ResourceType,
			QueryStr: searchQuery(c.QueryParams()),
			Count:    pg.Limit,
			Offset:   pg.Offset,
		}

		var hits []dispatch.Hit
		if id := identifierParam(c); id != "" {
			hit, err := d.Retrieve(ctx, req, id)
			switch {
			case errors.Is(err, retriever.ErrNotFound):
			case err != nil:
				return h.fail(c, err)
			default:
				hits = []dispatch.Hit{hit}
			}
			params.Total = len(hits)
		} else {
			var f store.Filter
			if raw := c.QueryParam("_lastUpdated"); raw != "" {
				lu, err := fhir.ParseLastUpdated(raw, h.opts.Now())
				if err != nil {
					return h.fail(c, &ParameterError{Name: "_lastUpdated", Err: err})
				}
				f.LastUpdated = &lu
			}
			hits, params.Total, err = d.List(ctx, req, f, pg.Limit, pg.Offset)
			if err != nil {
				return h.fail(c, err)
			}
		}

		entries := make([]fhir.BundleEntry, 0, len(hits))
		for _, hit := range hits {
			raw, id, err := h.render(ctx, hit, mode, wantContained(c))
			if err != nil {
				return h.fail(c, err)
			}
			entries = append(entries, fhir.MatchEntry(d.ResourceType, id, raw))
		}
		return respond(c, http.StatusOK, fhir.NewSearchBundle(entries, params))
	}
}

// read answers with the reference type the identifier was found by unless
// refType asks for another.
func (h *Handler) read(d *dispatch.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("identifier")
		req := dispatch.Request{Method: http.MethodGet, ResourceTypeParam: c.QueryParam("resourceType")}
		hit, err := d.Retrieve(c.Request().Context(), req, id)
		if err != nil {
			return h.failLookup(c, d, id, err)
		}
		mode := hit.ReferenceType
		if c.QueryParam("refType") != "" {
			if mode, err = h.referenceType(c); err != nil {
				return h.fail(c, err)
			}
		}
		raw, _, err := h.render(c.Request().Context(), hit, mode, wantContained(c))
		if err != nil {
			return h.fail(c, err)
		}
		return c.Blob(http.StatusOK, MIMEFHIRJSON, raw)
	}
}

func (h *Handler) create(d *dispatch.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return h.fail(c, err)
		}
		mode, err := h.referenceType(c)
		if err != nil {
			return h.fail(c, err)
		}
		audit := h.auditUser(ctx)
		req := dispatch.Request{Method: http.MethodPost, BodyType: dispatch.BodyType(d.ResourceType, body)}

		body, saved, err := h.unpackContained(ctx, d, req, body, audit)
		if err != nil {
			return h.fail(c, err)
		}
		hit, err := d.Create(ctx, req, body, audit)
		if err != nil {
			h.rollback(ctx, saved)
			return h.fail(c, err)
		}
		h.notify(ctx, hit.Record)

		raw, _, err := h.render(ctx, hit, mode, false)
		if err != nil {
			return h.fail(c, err)
		}
		c.Response().Header().Set(echo.HeaderLocation, h.opts.BaseURL+"/"+d.ResourceType+"/"+hit.Record.Meta().UUID)
		return c.Blob(http.StatusCreated, MIMEFHIRJSON, raw)
	}
}

func (h *Handler) update(d *dispatch.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("identifier")
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return h.fail(c, err)
		}
		mode, err := h.referenceType(c)
		if err != nil {
			return h.fail(c, err)
		}
		audit := h.auditUser(ctx)
		req := dispatch.Request{Method: http.MethodPut, BodyType: dispatch.BodyType(d.ResourceType, body)}

		body, saved, err := h.unpackContained(ctx, d, req, body, audit)
		if err != nil {
			return h.fail(c, err)
		}
		hit, err := d.Update(ctx, req, id, body, audit)
		if err != nil {
			h.rollback(ctx, saved)
			return h.failLookup(c, d, id, err)
		}
		h.notify(ctx, hit.Record)

		raw, _, err := h.render(ctx, hit, mode, false)
		if err != nil {
			return h.fail(c, err)
		}
		return c.Blob(http.StatusOK, MIMEFHIRJSON, raw)
	}
}

func (h *Handler) remove(d *dispatch.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("identifier")
		if err := d.Delete(c.Request().Context(), dispatch.Request{Method: http.MethodDelete}, id); err != nil {
			return h.failLookup(c, d, id, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Metadata serves the CapabilityStatement.
func (h *Handler) Metadata(c echo.Context) error {
	interactions := []string{"read", "search-type", "create", "update", "delete"}
	var resources []fhir.CSResource
	for _, rt := range h.resourceTypes() {
		params := []fhir.CSSearchParam{
			{Name: "identifier", Type: "token"},
			{Name: "refType", Type: "token"},
			{Name: "contained", Type: "token"},
		}
		if len(h.opts.Dispatchers[rt].Entries) > 1 {
			params = append(params, fhir.CSSearchParam{Name: "resourceType", Type: "token"})
		}
		resources = append(resources, fhir.ResourceCapability(rt, interactions, params...))
	}
	resources = append(resources, fhir.ResourceCapability("CodeSystem", []string{"read", "search-type"}))
	return respond(c, http.StatusOK, fhir.NewCapabilityStatement(h.opts.BaseURL, resources))
}

// ListCodeSystems returns every published code system.
func (h *Handler) ListCodeSystems(c echo.Context) error {
	var out []fhir.Resource
	for _, t := range h.opts.Tables.Owned() {
		out = append(out, h.opts.Registry.CodeSystem.FromTable(t))
	}
	diags, err := h.diagnoses(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	out = append(out, diags)
	return respond(c, http.StatusOK, fhir.NewSearchBundleWithLinks(out, fhir.SearchBundleParams{
		BaseURL: h.opts.BaseURL + "/CodeSystem",
		Count:   len(out),
		Total:   len(out),
	}))
}

// GetCodeSystem returns one code system by id.
func (h *Handler) GetCodeSystem(c echo.Context) error {
	name := c.Param("name")
	if name == converter.DiagnosisSystem {
		cs, err := h.diagnoses(c.Request().Context())
		if err != nil {
			return h.fail(c, err)
		}
		return respond(c, http.StatusOK, cs)
	}
	t, ok := h.opts.Tables.Lookup(name)
	if !ok || !t.Owned {
		return respond(c, http.StatusNotFound, fhir.NotFoundOutcome("CodeSystem", name))
	}
	return respond(c, http.StatusOK, h.opts.Registry.CodeSystem.FromTable(t))
}

func (h *Handler) diagnoses(ctx context.Context) (*fhir.CodeSystem, error) {
	recs, _, err := h.opts.Store.List(ctx, store.Filter{Kinds: []imis.Kind{imis.KindDiagnosis}}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	diags := make([]*imis.Diagnosis, 0, len(recs))
	for _, r := range recs {
		if d, ok := r.(*imis.Diagnosis); ok {
			diags = append(diags, d)
		}
	}
	return h.opts.Registry.CodeSystem.FromDiagnoses(diags), nil
}

// render converts a hit, embedding its declared relations when asked to.
func (h *Handler) render(ctx context.Context, hit dispatch.Hit, mode converter.ReferenceType, withContained bool) (json.RawMessage, string, error) {
	if withContained {
		if decl, ok := h.opts.Declarations[hit.Converter.Name()]; ok {
			doc, err := decl.Composer(h.opts.ContainedQualified).Compose(ctx, hit.Converter, hit.Record, mode)
			if err != nil {
				return nil, "", err
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				return nil, "", fmt.Errorf("encode %s: %w", hit.Converter.ResourceType(), err)
			}
			id, _ := doc["id"].(string)
			return raw, id, nil
		}
	}
	res, err := hit.Converter.ToFHIR(hit.Record, mode)
	if err != nil {
		return nil, "", err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", hit.Converter.ResourceType(), err)
	}
	return raw, res.GetID(), nil
}

// unpackContained saves the new contained resources of body that the
// eligible converter declares and returns body with its local references
// pointing at them. Contained resources already stored under their uuid are
// left untouched. The records it created are returned for rollback.
func (h *Handler) unpackContained(ctx context.Context, d *dispatch.Dispatcher, req dispatch.Request, body []byte, audit int) ([]byte, []imis.Record, error) {
	decl, ok := h.reverseDeclaration(d, req)
	if !ok {
		return body, nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		// the converter reports the malformed body
		return body, nil, nil
	}
	items, _ := doc["contained"].([]any)
	if len(items) == 0 {
		return body, nil, nil
	}
	raws := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return nil, nil, fmt.Errorf("encode contained resource: %w", err)
		}
		raws = append(raws, raw)
	}

	var created []imis.Record
	for _, rev := range decl.Reverse {
		recs, err := rev.Convert(ctx, raws, audit)
		if err != nil {
			h.rollback(ctx, created)
			return nil, nil, err
		}
		for _, rec := range recs {
			// stored records are referenced, never overwritten
			if uuid := rec.Meta().UUID; uuid != "" {
				_, err := h.opts.Store.Get(ctx, rec.Kind(), store.FieldUUID, uuid)
				if err == nil {
					continue
				}
				if !errors.Is(err, store.ErrNotFound) {
					h.rollback(ctx, created)
					return nil, nil, fmt.Errorf("look up contained %s: %w", rec.Kind(), err)
				}
			}
			if err := h.opts.Store.Save(ctx, rec); err != nil {
				h.rollback(ctx, created)
				return nil, nil, fmt.Errorf("save contained %s: %w", rec.Kind(), err)
			}
			created = append(created, rec)
		}
	}

	contained.Delocalize(doc, decl.Fields())
	delete(doc, "contained")
	out, err := json.Marshal(doc)
	if err != nil {
		h.rollback(ctx, created)
		return nil, nil, fmt.Errorf("encode %s: %w", d.ResourceType, err)
	}
	return out, created, nil
}

func (h *Handler) reverseDeclaration(d *dispatch.Dispatcher, req dispatch.Request) (contained.Declaration, bool) {
	for _, e := range d.Eligible(req) {
		if decl, ok := h.opts.Declarations[e.Converter.Name()]; ok && len(decl.Reverse) > 0 {
			return decl, true
		}
	}
	return contained.Declaration{}, false
}

// rollback closes records created for a write that failed afterwards.
func (h *Handler) rollback(ctx context.Context, recs []imis.Record) {
	for _, rec := range recs {
		if err := h.opts.Store.Delete(ctx, rec.Kind(), rec.Meta().UUID); err != nil {
			h.logger(ctx).Error().Err(err).Str("kind", string(rec.Kind())).Str("uuid", rec.Meta().UUID).
				Msg("rollback of contained record failed")
		}
	}
}

// notify logs the subscriptions a written record matches. Delivery belongs
// to the notification service reading the same store.
func (h *Handler) notify(ctx context.Context, rec imis.Record) {
	if h.opts.Subscriptions == nil {
		return
	}
	log := h.logger(ctx)
	subs, err := h.opts.Subscriptions.Matching(ctx, rec)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(rec.Kind())).Msg("subscription matching failed")
		return
	}
	if len(subs) == 0 {
		return
	}
	ids := make([]string, len(subs))
	for i, s := range subs {
		ids[i] = s.UUID
	}
	log.Info().Str("kind", string(rec.Kind())).Str("uuid", rec.Meta().UUID).Strs("subscriptions", ids).
		Msg("record matches subscriptions")
}

func (h *Handler) auditUser(ctx context.Context) int {
	if id, ok := auth.AuditUserIDFromContext(ctx); ok {
		return id
	}
	return h.opts.AuditUserID
}

func (h *Handler) referenceType(c echo.Context) (converter.ReferenceType, error) {
	v := c.QueryParam("refType")
	if v == "" {
		return h.opts.ReferenceType, nil
	}
	rt, err := converter.ParseReferenceType(v)
	if err != nil {
		return "", &ParameterError{Name: "refType", Err: err}
	}
	return rt, nil
}

func (h *Handler) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.opts.Logger
}

// identifierParam reads identifier or code, dropping a token system.
func identifierParam(c echo.Context) string {
	v := c.QueryParam("identifier")
	if v == "" {
		v = c.QueryParam("code")
	}
	if i := strings.LastIndex(v, "|"); i >= 0 {
		v = v[i+1:]
	}
	return v
}

func wantContained(c echo.Context) bool {
	return strings.EqualFold(c.QueryParam("contained"), "true")
}

// searchQuery keeps the search parameters of a query for paging links.
func searchQuery(q url.Values) string {
	kept := url.Values{}
	for k, v := range q {
		if k == "_count" || k == "_offset" {
			continue
		}
		kept[k] = v
	}
	return kept.Encode()
}

func respond(c echo.Context, status int, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.Blob(status, MIMEFHIRJSON, raw)
}
