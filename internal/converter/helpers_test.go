package converter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/openimis/imis-fhir/internal/imis"
)

var errNotFound = errors.New("not found")

// fakeLookup indexes records by uuid, database id and business code.
type fakeLookup map[imis.Kind]map[string]imis.Record

func (f fakeLookup) add(recs ...imis.Record) fakeLookup {
	for _, rec := range recs {
		m := f[rec.Kind()]
		if m == nil {
			m = map[string]imis.Record{}
			f[rec.Kind()] = m
		}
		meta := rec.Meta()
		m[meta.UUID] = rec
		m[strconv.Itoa(meta.ID)] = rec
		if code, ok := imis.CodeOf(rec); ok && code != "" {
			m[code] = rec
		}
	}
	return f
}

func (f fakeLookup) Find(_ context.Context, kind imis.Kind, identifier string) (imis.Record, error) {
	if rec, ok := f[kind][identifier]; ok {
		return rec, nil
	}
	return nil, errNotFound
}

func newTestRegistry(lookup Lookup) *Registry {
	return NewRegistry(DefaultSettings(), lookup)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func recBase(id int, uuid string) imis.Base {
	return imis.Base{ID: id, UUID: uuid, ValidityFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func fixtureLocations() (region, district, municipality, village *imis.Location) {
	region = &imis.Location{Base: recBase(1, "4a7e1d3c-0000-4000-8000-000000000001"), Code: "R1", Name: "Region", Type: "R"}
	district = &imis.Location{Base: recBase(2, "4a7e1d3c-0000-4000-8000-000000000002"), Code: "R1D1", Name: "District", Type: "D", Parent: region}
	municipality = &imis.Location{Base: recBase(3, "4a7e1d3c-0000-4000-8000-000000000003"), Code: "R1D1M1", Name: "Municipality", Type: "W", Parent: district}
	village = &imis.Location{Base: recBase(4, "4a7e1d3c-0000-4000-8000-000000000004"), Code: "R1D1M1V1", Name: "Village", Type: "V", Parent: municipality}
	return
}

type claimFixture struct {
	claim   *imis.Claim
	hf      *imis.HealthFacility
	insuree *imis.Insuree
	admin   *imis.ClaimAdmin
	icd     *imis.Diagnosis
	item    *imis.Item
	service *imis.Service
}

func newClaimFixture() *claimFixture {
	_, district, _, village := fixtureLocations()
	f := &claimFixture{}
	f.hf = &imis.HealthFacility{Base: recBase(10, "6b3a9e55-0000-4000-8000-000000000010"), Code: "HF01", Name: "Health Centre", Level: "C", Location: district}
	f.insuree = &imis.Insuree{Base: recBase(20, "0d2b8c11-0000-4000-8000-000000000020"), CHFID: "070707070", LastName: "Doe", OtherNames: "John", DOB: date(1980, 5, 4), Gender: "M", CurrentVillage: village}
	f.admin = &imis.ClaimAdmin{Base: recBase(30, "9f1c2d44-0000-4000-8000-000000000030"), Code: "CA01", LastName: "Admin", OtherNames: "Claim", HealthFacility: f.hf}
	f.icd = &imis.Diagnosis{Base: recBase(40, "1e5f7a88-0000-4000-8000-000000000040"), Code: "A02", Name: "Other salmonella infections"}
	f.item = &imis.Item{Base: recBase(50, "3c9d0b22-0000-4000-8000-000000000050"), Code: "0001", Name: "Paracetamol", Type: "D", Price: 10}
	f.service = &imis.Service{Base: recBase(60, "8a4e6f33-0000-4000-8000-000000000060"), Code: "A1", Name: "Consultation", Type: "P", Price: 400}
	f.claim = &imis.Claim{
		Base:           recBase(70, "ae1f9e25-0000-4000-8000-000000000070"),
		Code:           "CLM-1",
		DateClaimed:    date(2023, 3, 10),
		DateFrom:       date(2023, 3, 1),
		DateTo:         date(2023, 3, 2),
		Status:         2,
		Insuree:        f.insuree,
		HealthFacility: f.hf,
		Admin:          f.admin,
		ICD:            f.icd,
		Claimed:        fVal(420),
		VisitType:      "O",
		Explanation:    "first visit",
		Items:          []*imis.ClaimItem{{Item: f.item, QtyProvided: 2, PriceAsked: 10, Explanation: "twice a day"}},
		Services:       []*imis.ClaimService{{Service: f.service, QtyProvided: 1, PriceAsked: 400}},
	}
	return f
}

func (f *claimFixture) lookup() fakeLookup {
	return fakeLookup{}.add(f.hf, f.insuree, f.admin, f.icd, f.item, f.service)
}

func fVal(v float64) *float64 { return &v }
