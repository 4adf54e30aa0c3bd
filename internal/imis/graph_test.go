package imis

import (
	"encoding/json"
	"testing"
)

func cyclicFamily() (*Family, *Insuree, *Policy) {
	fam := &Family{Base: Base{ID: 1, UUID: "fam"}}
	head := &Insuree{Base: Base{ID: 2, UUID: "head"}, CHFID: "111", Head: true, Family: fam}
	pol := &Policy{Base: Base{ID: 3, UUID: "pol"}, Family: fam, Insurees: []*Insuree{head}}
	fam.Head = head
	fam.Members = []*Insuree{head}
	head.Policies = []*Policy{pol}
	return fam, head, pol
}

func TestFlatten_BreaksCycles(t *testing.T) {
	fam, head, pol := cyclicFamily()
	for _, r := range []Record{fam, head, pol, &Claim{Insuree: head}, &Feedback{Claim: &Claim{Insuree: head}}} {
		if _, err := json.Marshal(Flatten(r)); err != nil {
			t.Fatalf("%s: marshal flattened record: %v", r.Kind(), err)
		}
	}
}

func TestFlatten_KeepsData(t *testing.T) {
	fam, head, _ := cyclicFamily()

	fi := Flatten(head).(*Insuree)
	if fi.Family == nil || fi.Family.UUID != "fam" {
		t.Fatalf("expected family snapshot, got %+v", fi.Family)
	}
	if fi.Family.Head != nil {
		t.Error("family snapshot should not carry the head")
	}
	if len(fi.Policies) != 1 || fi.Policies[0].UUID != "pol" {
		t.Errorf("expected policy kept, got %+v", fi.Policies)
	}

	ff := Flatten(fam).(*Family)
	if ff.Head == nil || ff.Head.CHFID != "111" {
		t.Fatalf("expected head kept, got %+v", ff.Head)
	}
	if len(ff.Head.Policies) != 0 {
		t.Error("head reached through the family should carry no policies")
	}

	if fam.Head != head || head.Family != fam {
		t.Error("Flatten must not modify its argument")
	}
}
