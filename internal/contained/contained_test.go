package contained

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
)

func base(id int, uuid string) imis.Base {
	return imis.Base{ID: id, UUID: uuid, ValidityFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type fixture struct {
	claim   *imis.Claim
	insuree *imis.Insuree
	admin   *imis.ClaimAdmin
	icd     *imis.Diagnosis
	item    *imis.Item
	service *imis.Service
}

func newFixture() *fixture {
	loc := &imis.Location{Base: base(1, "4a7e1d3c-0000-4000-8000-000000000001"), Code: "R1D1", Name: "District", Type: "D"}
	hf := &imis.HealthFacility{Base: base(10, "6b3a9e55-0000-4000-8000-000000000010"), Code: "HF01", Name: "Health Centre", Level: "C", Location: loc}
	dob := time.Date(1980, 5, 4, 0, 0, 0, 0, time.UTC)
	f := &fixture{
		insuree: &imis.Insuree{Base: base(20, "0d2b8c11-0000-4000-8000-000000000020"), CHFID: "070707070", LastName: "Doe", OtherNames: "John", DOB: &dob, Gender: "M"},
		admin:   &imis.ClaimAdmin{Base: base(30, "9f1c2d44-0000-4000-8000-000000000030"), Code: "CA01", LastName: "Admin", OtherNames: "Claim", HealthFacility: hf},
		icd:     &imis.Diagnosis{Base: base(40, "1e5f7a88-0000-4000-8000-000000000040"), Code: "A02", Name: "Other salmonella infections"},
		item:    &imis.Item{Base: base(50, "3c9d0b22-0000-4000-8000-000000000050"), Code: "0001", Name: "Paracetamol", Type: "D", Price: 10},
		service: &imis.Service{Base: base(60, "8a4e6f33-0000-4000-8000-000000000060"), Code: "A1", Name: "Consultation", Type: "P", Price: 400},
	}
	claimed := 420.0
	from := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	f.claim = &imis.Claim{
		Base:           base(70, "ae1f9e25-0000-4000-8000-000000000070"),
		Code:           "CLM-1",
		DateClaimed:    &from,
		DateFrom:       &from,
		Status:         2,
		Insuree:        f.insuree,
		HealthFacility: hf,
		Admin:          f.admin,
		ICD:            f.icd,
		ICD1:           f.icd,
		Claimed:        &claimed,
		VisitType:      "O",
		Items:          []*imis.ClaimItem{{Item: f.item, QtyProvided: 2, PriceAsked: 10}},
		Services:       []*imis.ClaimService{{Service: f.service, QtyProvided: 1, PriceAsked: 400}},
	}
	return f
}

var errNotStored = errors.New("not stored")

func registry() *converter.Registry {
	return converter.NewRegistry(converter.DefaultSettings(), nil)
}

func ref(t *testing.T, v any) string {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected a reference object, got %T", v)
	s, _ := m["reference"].(string)
	return s
}

func containedIDs(t *testing.T, doc map[string]any) map[string]string {
	t.Helper()
	items, ok := doc["contained"].([]any)
	require.True(t, ok)
	out := map[string]string{}
	for _, it := range items {
		m := it.(map[string]any)
		out[m["id"].(string)] = m["resourceType"].(string)
	}
	return out
}

func TestComposeClaim_RewritesDeclaredReferences(t *testing.T) {
	f := newFixture()
	reg := registry()
	decl := Declarations(reg)["claim"]

	doc, err := decl.Composer(false).Compose(context.Background(), reg.Claim.Converter(), f.claim, converter.ReferenceCode)
	require.NoError(t, err)

	ids := containedIDs(t, doc)
	assert.Equal(t, map[string]string{
		f.insuree.UUID: "Patient",
		f.admin.UUID:   "Practitioner",
		f.item.UUID:    "Medication",
		f.service.UUID: "ActivityDefinition",
		f.icd.UUID:     "Condition",
	}, ids, "the repeated diagnosis is contained once")

	assert.Equal(t, "#"+f.insuree.UUID, ref(t, doc["patient"]))
	assert.Equal(t, "#"+f.admin.UUID, ref(t, doc["enterer"]))
	assert.Equal(t, "Location/HF01", ref(t, doc["facility"]), "facility has no contained representation")

	for _, d := range doc["diagnosis"].([]any) {
		assert.Equal(t, "#"+f.icd.UUID, ref(t, d.(map[string]any)["diagnosisReference"]))
	}
	var lines []string
	for _, it := range doc["item"].([]any) {
		ext := it.(map[string]any)["extension"].([]any)[0].(map[string]any)
		lines = append(lines, ref(t, ext["valueReference"]))
	}
	assert.ElementsMatch(t, []string{"#" + f.item.UUID, "#" + f.service.UUID}, lines)
}

func TestComposeClaim_QualifiedIDs(t *testing.T) {
	f := newFixture()
	reg := registry()

	doc, err := Declarations(reg)["claim"].Composer(true).Compose(context.Background(), reg.Claim.Converter(), f.claim, converter.ReferenceUUID)
	require.NoError(t, err)

	ids := containedIDs(t, doc)
	assert.Contains(t, ids, "Patient/"+f.insuree.UUID)
	assert.Equal(t, "#Patient/"+f.insuree.UUID, ref(t, doc["patient"]))
}

func TestComposeWithoutRelations(t *testing.T) {
	f := newFixture()
	reg := registry()
	f.insuree.Family = nil

	doc, err := Declarations(reg)["patient"].Composer(false).Compose(context.Background(), reg.Patient.Converter(), f.insuree, converter.ReferenceUUID)
	require.NoError(t, err)
	assert.NotContains(t, doc, "contained")
}

func TestComposePatient_ReloadsFamilySnapshot(t *testing.T) {
	f := newFixture()
	full := &imis.Family{Base: base(90, "5d5d5d5d-0000-4000-8000-000000000090"), Head: f.insuree, Members: []*imis.Insuree{f.insuree}}
	f.insuree.Family = &imis.Family{Base: full.Base}

	var asked []string
	reg := converter.NewRegistry(converter.DefaultSettings(), converter.LookupFunc(
		func(_ context.Context, kind imis.Kind, id string) (imis.Record, error) {
			asked = append(asked, string(kind)+"/"+id)
			return full, nil
		}))

	doc, err := Declarations(reg)["patient"].Composer(false).Compose(context.Background(), reg.Patient.Converter(), f.insuree, converter.ReferenceUUID)
	require.NoError(t, err)
	assert.Equal(t, []string{string(imis.KindFamily) + "/" + full.UUID}, asked)
	assert.Equal(t, map[string]string{full.UUID: "Group"}, containedIDs(t, doc))

	_, err = Declarations(registry())["patient"].Composer(false).Compose(context.Background(), reg.Patient.Converter(), f.insuree, converter.ReferenceUUID)
	var convErr *converter.ConversionError
	require.ErrorAs(t, err, &convErr, "a snapshot without its head cannot be converted")
	assert.Equal(t, "head", convErr.Relation)
}

func TestComposePatient_MissingFamily(t *testing.T) {
	f := newFixture()
	f.insuree.Family = &imis.Family{Base: base(90, "5d5d5d5d-0000-4000-8000-000000000090")}
	reg := converter.NewRegistry(converter.DefaultSettings(), converter.LookupFunc(
		func(context.Context, imis.Kind, string) (imis.Record, error) { return nil, errNotStored }))

	_, err := Declarations(reg)["patient"].Composer(false).Compose(context.Background(), reg.Patient.Converter(), f.insuree, converter.ReferenceUUID)
	require.ErrorIs(t, err, errNotStored)
	assert.Contains(t, err.Error(), "contained family")
}

func newPolicy(f *fixture) *imis.Policy {
	fam := &imis.Family{Base: base(90, "5d5d5d5d-0000-4000-8000-000000000090"), Head: f.insuree, Members: []*imis.Insuree{f.insuree}}
	f.insuree.Family = fam
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	return &imis.Policy{
		Base:      base(100, "2b6c8d99-0000-4000-8000-000000000100"),
		Stage:     "N",
		Status:    2,
		Value:     1000,
		StartDate: &start,
		Family:    fam,
		Product:   &imis.Product{Base: base(95, "5f0e4d77-0000-4000-8000-000000000095"), Code: "BASIC", Name: "Basic cover"},
		Insurees:  []*imis.Insuree{f.insuree},
	}
}

func TestComposeCoverage_ContainsFamilyOnly(t *testing.T) {
	pol := newPolicy(newFixture())
	reg := registry()

	doc, err := Declarations(reg)["coverage"].Composer(false).Compose(context.Background(), reg.Coverage.Converter(), pol, converter.ReferenceUUID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{pol.Family.UUID: "Group"}, containedIDs(t, doc))
	assert.Equal(t, "#"+pol.Family.UUID, ref(t, doc["policyHolder"]))

	class := doc["class"].([]any)[0].(map[string]any)
	assert.Equal(t, pol.Product.UUID, class["value"])
}

func TestComposeContract_ContainsProduct(t *testing.T) {
	pol := newPolicy(newFixture())
	reg := registry()

	doc, err := Declarations(reg)["contract"].Composer(false).Compose(context.Background(), reg.Contract.Converter(), pol, converter.ReferenceUUID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{pol.Product.UUID: "InsurancePlan"}, containedIDs(t, doc))

	asset := doc["term"].([]any)[0].(map[string]any)["asset"].([]any)[0].(map[string]any)
	assert.Equal(t, "#"+pol.Product.UUID, ref(t, asset["typeReference"].([]any)[0]))
}

func TestDelocalize(t *testing.T) {
	f := newFixture()
	reg := registry()
	decl := Declarations(reg)["claim"]

	doc, err := decl.Composer(true).Compose(context.Background(), reg.Claim.Converter(), f.claim, converter.ReferenceUUID)
	require.NoError(t, err)

	n := Delocalize(doc, decl.Fields())
	assert.Positive(t, n)
	assert.Equal(t, "Patient/"+f.insuree.UUID, ref(t, doc["patient"]))
	assert.Equal(t, "Practitioner/"+f.admin.UUID, ref(t, doc["enterer"]))
}

func TestRewriteIgnoresUnknownReferences(t *testing.T) {
	doc := map[string]any{
		"patient": map[string]any{"reference": "Patient/x"},
		"other":   map[string]any{"reference": "Patient/y"},
	}
	n := Rewrite(doc, []string{"patient", "missing.path"}, map[string]string{"Patient/x": "x", "Patient/y": "y"})
	assert.Equal(t, 1, n)
	assert.Equal(t, "#x", ref(t, doc["patient"]))
	assert.Equal(t, "Patient/y", ref(t, doc["other"]))
}

func medicationJSON(t *testing.T, it *imis.Item, id string, mutate func(map[string]any)) json.RawMessage {
	t.Helper()
	res, err := registry().Medication.ToFHIR(it, converter.ReferenceUUID)
	require.NoError(t, err)
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	m["id"] = id
	if mutate != nil {
		mutate(m)
	}
	raw, err = json.Marshal(m)
	require.NoError(t, err)
	return raw
}

func TestReverse_BindsUUIDFromContainedID(t *testing.T) {
	f := newFixture()
	other := json.RawMessage(`{"resourceType":"Patient","id":"p1"}`)
	raw := medicationJSON(t, f.item, "Medication/5b1f0000-0000-4000-8000-0000000000aa", nil)

	recs, err := Reverse{Converter: registry().Medication.Converter()}.Convert(context.Background(), []json.RawMessage{other, raw}, 7)
	require.NoError(t, err)
	require.Len(t, recs, 1, "resources of other types are skipped")

	it := recs[0].(*imis.Item)
	assert.Equal(t, "5b1f0000-0000-4000-8000-0000000000aa", it.UUID)
	assert.Equal(t, "0001", it.Code)
	assert.Equal(t, 7, it.AuditUserID)
}

func TestReverse_OtherModesKeepRecordUUID(t *testing.T) {
	f := newFixture()
	raw := medicationJSON(t, f.item, "local-1", nil)

	recs, err := Reverse{Converter: registry().Medication.Converter(), Mode: converter.ReferenceDBID}.Convert(context.Background(), []json.RawMessage{raw}, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEqual(t, "local-1", recs[0].Meta().UUID)
}

func TestReverse_FailsWholeBatch(t *testing.T) {
	f := newFixture()
	good := medicationJSON(t, f.item, "good", nil)
	bad := medicationJSON(t, f.item, "bad", func(m map[string]any) {
		delete(m, "identifier")
	})

	recs, err := Reverse{Converter: registry().Medication.Converter()}.Convert(context.Background(), []json.RawMessage{good, bad}, 1)
	require.Error(t, err)
	assert.Nil(t, recs)
	assert.Contains(t, err.Error(), "contained Medication/bad")

	var rpe *converter.RequestProcessError
	require.ErrorAs(t, err, &rpe)
	assert.Contains(t, rpe.Messages, "Missing medication code")
}

func TestReverse_RequiresID(t *testing.T) {
	f := newFixture()
	raw := medicationJSON(t, f.item, "", nil)

	_, err := Reverse{Converter: registry().Medication.Converter()}.Convert(context.Background(), []json.RawMessage{raw}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}
