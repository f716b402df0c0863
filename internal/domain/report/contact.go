package report

type ContactMethod string

const (
	ContactPhone    ContactMethod = "Phone"
	ContactEmail    ContactMethod = "Email"
	ContactText     ContactMethod = "Text message"
	ContactInPerson ContactMethod = "In-person"
)

// ContactMethods lists every method in display order.
func ContactMethods() []ContactMethod {
	return []ContactMethod{ContactPhone, ContactEmail, ContactText, ContactInPerson}
}

func (m ContactMethod) Valid() bool {
	switch m {
	case ContactPhone, ContactEmail, ContactText, ContactInPerson:
		return true
	}
	return false
}

// ContactSet is the set of preferred contact methods. Order carries no meaning.
type ContactSet []ContactMethod

func (s ContactSet) Has(m ContactMethod) bool {
	for _, it := range s {
		if it == m {
			return true
		}
	}
	return false
}

// Toggle adds m when absent and removes it when present. Other members are untouched.
func (s *ContactSet) Toggle(m ContactMethod) {
	out := make(ContactSet, 0, len(*s)+1)
	removed := false
	for _, it := range *s {
		if it == m {
			removed = true
			continue
		}
		out = append(out, it)
	}
	if !removed {
		out = append(out, m)
	}
	*s = out
}

// Canonical returns the members in display order with duplicates dropped.
func (s ContactSet) Canonical() ContactSet {
	out := make(ContactSet, 0, len(s))
	for _, m := range ContactMethods() {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	for _, m := range s {
		if !m.Valid() && !out.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s ContactSet) Len() int { return len(s) }

func (s ContactSet) Equal(o ContactSet) bool {
	a, b := s.Canonical(), o.Canonical()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s ContactSet) hasDuplicates() bool {
	seen := make(map[ContactMethod]struct{}, len(s))
	for _, m := range s {
		if _, ok := seen[m]; ok {
			return true
		}
		seen[m] = struct{}{}
	}
	return false
}

func (s ContactSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, m := range s {
		out = append(out, string(m))
	}
	return out
}
