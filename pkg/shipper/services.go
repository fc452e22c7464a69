package shipper

import (
	"fmt"
	"slices"
	"strings"
)

// ServiceFlag is a bit set of carrier services. Each carrier package declares
// one flag per service it supports.
type ServiceFlag uint64

// AllServices selects every service of a carrier.
const AllServices ServiceFlag = ^ServiceFlag(0)

// Has reports whether every bit of f is set in s.
func (s ServiceFlag) Has(f ServiceFlag) bool {
	return f != 0 && s&f == f
}

// ServiceCode is a carrier's wire-level service identifier.
type ServiceCode string

// Service describes one carrier service.
type Service struct {
	Code ServiceCode
	Name string
	Flag ServiceFlag
}

// ServiceTable maps a carrier's service codes to their descriptions.
// Tables are built once per carrier package and never modified.
type ServiceTable map[ServiceCode]Service

// NewServiceTable builds a table from services keyed by their code.
func NewServiceTable(services ...Service) ServiceTable {
	t := make(ServiceTable, len(services))
	for _, s := range services {
		t[s.Code] = s
	}
	return t
}

// Lookup returns the service for code.
func (t ServiceTable) Lookup(code string) (Service, bool) {
	s, ok := t[ServiceCode(strings.TrimSpace(code))]
	return s, ok
}

// Services returns the table's services ordered by flag.
func (t ServiceTable) Services() []Service {
	out := make([]Service, 0, len(t))
	for _, s := range t {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Service) int {
		switch {
		case a.Flag < b.Flag:
			return -1
		case a.Flag > b.Flag:
			return 1
		default:
			return strings.Compare(string(a.Code), string(b.Code))
		}
	})
	return out
}

// ParseFlags converts a list of service codes or names into a flag set.
// An empty list selects all services.
func (t ServiceTable) ParseFlags(names []string) (ServiceFlag, error) {
	var flags ServiceFlag
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		s, ok := t.Find(n)
		if !ok {
			return 0, fmt.Errorf("unknown service %q", n)
		}
		flags |= s.Flag
	}
	if flags == 0 {
		return AllServices, nil
	}
	return flags, nil
}

// Find returns the service whose code or display name matches nameOrCode,
// ignoring case.
func (t ServiceTable) Find(nameOrCode string) (Service, bool) {
	nameOrCode = strings.TrimSpace(nameOrCode)
	if nameOrCode == "" {
		return Service{}, false
	}
	if s, ok := t.Lookup(nameOrCode); ok {
		return s, true
	}
	for _, s := range t {
		if strings.EqualFold(s.Name, nameOrCode) || strings.EqualFold(string(s.Code), nameOrCode) {
			return s, true
		}
	}
	return Service{}, false
}

// ServiceFilter restricts which services an adapter reports.
type ServiceFilter struct {
	// Flags selects services; zero means all.
	Flags ServiceFlag
	// Only, when set, restricts to the single service with this code or name.
	Only string
}

// Allows reports whether s passes the filter.
func (f ServiceFilter) Allows(s Service) bool {
	flags := f.Flags
	if flags == 0 {
		flags = AllServices
	}
	if !flags.Has(s.Flag) {
		return false
	}
	if only := strings.TrimSpace(f.Only); only != "" {
		return strings.EqualFold(only, string(s.Code)) || strings.EqualFold(only, s.Name)
	}
	return true
}
