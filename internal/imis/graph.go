package imis

// Flatten returns a copy of r whose insuree/family links cannot loop, so the
// record can be encoded as one document. Families reached through an insuree
// keep neither head nor members, insurees reached through a family or a
// policy keep no policies. r itself is not modified.
func Flatten(r Record) Record {
	switch v := r.(type) {
	case *Insuree:
		return flatInsuree(v, true)
	case *Family:
		return flatFamily(v)
	case *Policy:
		return flatPolicy(v)
	case *Claim:
		if v == nil {
			return v
		}
		c := *v
		c.Insuree = flatInsuree(v.Insuree, true)
		return &c
	case *Feedback:
		if v == nil {
			return v
		}
		f := *v
		if v.Claim != nil {
			f.Claim = Flatten(v.Claim).(*Claim)
		}
		return &f
	}
	return r
}

func familySnapshot(f *Family) *Family {
	if f == nil {
		return nil
	}
	s := *f
	s.Head = nil
	s.Members = nil
	return &s
}

func flatInsuree(i *Insuree, withPolicies bool) *Insuree {
	if i == nil {
		return nil
	}
	c := *i
	c.Family = familySnapshot(i.Family)
	c.Policies = nil
	if withPolicies {
		for _, p := range i.Policies {
			if p == nil {
				continue
			}
			pc := *p
			pc.Family = familySnapshot(p.Family)
			pc.Insurees = nil
			c.Policies = append(c.Policies, &pc)
		}
	}
	return &c
}

func flatFamily(f *Family) *Family {
	if f == nil {
		return nil
	}
	c := *f
	c.Head = flatInsuree(f.Head, false)
	c.Members = nil
	for _, m := range f.Members {
		c.Members = append(c.Members, flatInsuree(m, false))
	}
	return &c
}

func flatPolicy(p *Policy) *Policy {
	if p == nil {
		return nil
	}
	c := *p
	c.Family = flatFamily(p.Family)
	c.Insurees = nil
	for _, i := range p.Insurees {
		c.Insurees = append(c.Insurees, flatInsuree(i, false))
	}
	return &c
}
