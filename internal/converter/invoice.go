package converter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// partyResourceTypes maps the kind of an invoice third party to the FHIR
// resource addressing it.
var partyResourceTypes = map[imis.Kind]string{
	imis.KindFamily:       "Group",
	imis.KindInsuree:      "Patient",
	imis.KindPolicyHolder: "Organization",
}

func partyKind(resourceType string) (imis.Kind, bool) {
	for k, rt := range partyResourceTypes {
		if rt == resourceType {
			return k, true
		}
	}
	return "", false
}

// InvoiceConverter maps invoices. Each line carries a base price component
// plus optional discount, deduction and tax components.
type InvoiceConverter struct {
	base *base
}

func (c *InvoiceConverter) Converter() Converter {
	return &typed[*imis.Invoice, *fhir.Invoice]{
		name:         "invoice",
		resourceType: "Invoice",
		kind:         imis.KindInvoice,
		newResource:  func() *fhir.Invoice { return &fhir.Invoice{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *InvoiceConverter) money(v float64, currency string) *fhir.Money {
	if currency == "" {
		currency = c.base.s.Currency
	}
	return &fhir.Money{Value: fhir.Decimal(v), Currency: currency}
}

func (c *InvoiceConverter) ToFHIR(inv *imis.Invoice, mode ReferenceType) (*fhir.Invoice, error) {
	b := c.base
	status, ok := b.t.InvoiceStatus.Code(strconv.Itoa(inv.Status))
	if !ok {
		return nil, &ConversionError{Relation: "status", Message: fmt.Sprintf("Unmapped invoice status %d", inv.Status)}
	}
	fi := &fhir.Invoice{
		DomainResource: fhir.DomainResource{ResourceType: "Invoice", Meta: newMeta(inv)},
		Status:         status,
		Type:           b.t.InvoiceType.Concept(inv.SubjectType),
		Date:           formatDate(inv.DateInvoice),
		TotalNet:       c.money(inv.AmountNet, inv.CurrencyCode),
		TotalGross:     c.money(inv.AmountTotal, inv.CurrencyCode),
	}
	pk(fi, inv, mode)
	fi.Identifier = b.identifiers(inv)

	if tp := inv.ThirdParty; tp != nil {
		if rt, ok := partyResourceTypes[tp.PartyKind]; ok {
			fi.Recipient = b.reference(tp, rt, mode, tp.Code)
		}
	}

	for i, line := range inv.LineItems {
		fi.LineItem = append(fi.LineItem, c.lineItem(i+1, line, inv.CurrencyCode))
	}
	return fi, nil
}

func (c *InvoiceConverter) lineItem(seq int, line *imis.InvoiceLineItem, currency string) fhir.InvoiceLineItem {
	b := c.base
	base := fhir.InvoicePriceComponent{
		Extension: []fhir.Extension{{URL: b.ext("unit-price"), ValueMoney: c.money(line.UnitPrice, currency)}},
		Type:      "base",
		Code:      concept(b.t.IdentifierSystem, b.t.Identifier.Code, line.Code),
		Factor:    fhir.Decimal(line.Quantity),
		Amount:    c.money(line.UnitPrice*line.Quantity, currency),
	}
	base.Code.Text = line.Description
	li := fhir.InvoiceLineItem{
		Sequence:                  seq,
		ChargeItemCodeableConcept: b.t.ChargeItem.Concept(line.LineType),
		PriceComponent:            []fhir.InvoicePriceComponent{base},
	}
	if line.Discount != nil {
		li.PriceComponent = append(li.PriceComponent, fhir.InvoicePriceComponent{Type: "discount", Factor: fhir.Decimal(*line.Discount)})
	}
	if line.Deduction != nil {
		li.PriceComponent = append(li.PriceComponent, fhir.InvoicePriceComponent{Type: "deduction", Amount: c.money(*line.Deduction, currency)})
	}
	if line.TaxRate != nil {
		li.PriceComponent = append(li.PriceComponent, fhir.InvoicePriceComponent{Type: "tax", Factor: fhir.Decimal(*line.TaxRate)})
	}
	return li
}

func (c *InvoiceConverter) ToIMIS(ctx context.Context, fi *fhir.Invoice, auditUserID int) (*imis.Invoice, error) {
	b := c.base
	var errs Errors
	inv := &imis.Invoice{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&inv.Base, fi.Identifier)

	inv.Code = IdentifierByCode(fi.Identifier, b.t.Identifier.Code)
	errs.Require(inv.Code != "", "Missing invoice code")

	if k, ok := b.t.InvoiceStatus.Key(fi.Status); ok {
		inv.Status, _ = strconv.Atoi(k)
	} else {
		errs.Add("Unknown invoice status %s", fi.Status)
	}
	if k, ok := b.t.InvoiceType.KeyFromConcept(fi.Type); errs.Require(ok, "Missing invoice `type` attribute") {
		inv.SubjectType = k
	}
	inv.DateInvoice = parseDate(fi.Date)

	if m := fi.TotalNet; m != nil && m.Value != nil {
		inv.AmountNet = *m.Value
		inv.CurrencyCode = m.Currency
	}
	if m := fi.TotalGross; m != nil && m.Value != nil {
		inv.AmountTotal = *m.Value
	}

	if ref := fi.Recipient; ref != nil {
		inv.ThirdParty = c.party(ctx, ref, &errs)
	}

	for _, li := range fi.LineItem {
		inv.LineItems = append(inv.LineItems, c.readLineItem(li))
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (c *InvoiceConverter) party(ctx context.Context, ref *fhir.Reference, errs *Errors) *imis.Party {
	rt, _, err := fhir.ParseReference(ref.Reference)
	if err != nil {
		errs.Add("Invalid recipient reference %s", ref.Reference)
		return nil
	}
	kind, ok := partyKind(rt)
	if !errs.Require(ok, "Unsupported recipient type "+rt) {
		return nil
	}
	rec := c.base.resolve(ctx, ref, rt, kind)
	if !errs.Require(rec != nil, "Recipient "+ref.Reference+" not found") {
		return nil
	}
	p := &imis.Party{Base: *rec.Meta(), PartyKind: kind}
	if code, ok := imis.CodeOf(rec); ok {
		p.Code = code
	}
	return p
}

func (c *InvoiceConverter) readLineItem(li fhir.InvoiceLineItem) *imis.InvoiceLineItem {
	b := c.base
	line := &imis.InvoiceLineItem{}
	if k, ok := b.t.ChargeItem.KeyFromConcept(li.ChargeItemCodeableConcept); ok {
		line.LineType = k
	}
	for _, pc := range li.PriceComponent {
		switch pc.Type {
		case "base":
			if cd := pc.Code.FirstCoding(); cd != nil {
				line.Code = cd.Display
			}
			if pc.Code != nil {
				line.Description = pc.Code.Text
			}
			if pc.Factor != nil {
				line.Quantity = *pc.Factor
			}
			if e := fhir.FindExtension(pc.Extension, b.ext("unit-price")); e != nil && e.ValueMoney != nil && e.ValueMoney.Value != nil {
				line.UnitPrice = *e.ValueMoney.Value
			}
		case "discount":
			line.Discount = pc.Factor
		case "deduction":
			if pc.Amount != nil {
				line.Deduction = pc.Amount.Value
			}
		case "tax":
			line.TaxRate = pc.Factor
		}
	}
	return line
}
