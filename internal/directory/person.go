package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Person is one directory record relevant to board provisioning.
type Person struct {
	DN            string
	UID           string
	CommonName    string
	UIDNumber     string
	Title         string
	Organization  string
	Mail          string
	PrivateMail   string
	EmployeeType  string
	ManagerDN     string
	ContractStart time.Time
	ContractEnd   time.Time
}

// ManagerUID returns the uid RDN of the manager DN, or "" when the person has no
// manager or the DN carries no uid.
func (p Person) ManagerUID() string {
	if p.ManagerDN == "" {
		return ""
	}
	dn, err := ldap.ParseDN(p.ManagerDN)
	if err != nil {
		return ""
	}
	for _, rdn := range dn.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, "uid") {
				return attr.Value
			}
		}
	}
	return ""
}

// ContractStarted reports whether the contract start lies at or before now. A person
// without a start date is treated as started.
func (p Person) ContractStarted(now time.Time) bool {
	return p.ContractStart.IsZero() || !p.ContractStart.After(now)
}

// ContractEnded reports whether the contract end lies at or before now.
func (p Person) ContractEnded(now time.Time) bool {
	return !p.ContractEnd.IsZero() && !p.ContractEnd.After(now)
}

// ContractActive reports whether the person works here at now.
func (p Person) ContractActive(now time.Time) bool {
	return p.ContractStarted(now) && !p.ContractEnded(now)
}

// StartsAfter reports whether a known contract start lies after now.
func (p Person) StartsAfter(now time.Time) bool {
	return !p.ContractStart.IsZero() && p.ContractStart.After(now)
}

// EndsAfter reports whether a known contract end lies after now.
func (p Person) EndsAfter(now time.Time) bool {
	return !p.ContractEnd.IsZero() && p.ContractEnd.After(now)
}

// Index maps people by uid. Later duplicates win.
func Index(people []Person) map[string]Person {
	out := make(map[string]Person, len(people))
	for _, p := range people {
		if p.UID != "" {
			out[p.UID] = p
		}
	}
	return out
}

var timeLayouts = []string{
	"20060102150405Z0700",
	"20060102150405.999999999Z0700",
	"200601021504Z0700",
	"2006010215Z0700",
	"2006-01-02",
	time.RFC3339,
}

// ParseTime parses an LDAP generalized time or a plain YYYY-MM-DD date. The result is
// in UTC.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}
