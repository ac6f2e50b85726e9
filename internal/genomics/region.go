// Package genomics contains definitions related to genomic regions of interest.
package genomics

import "fmt"

// Class selects how much of a resource a request wants back.
type Class int

const (
	// ClassFull requests the whole resource, optionally restricted by region.
	ClassFull Class = iota
	// ClassHeader requests only the container's header block.
	ClassHeader
)

func (c Class) String() string {
	if c == ClassHeader {
		return "header"
	}
	return "full"
}

// ParseClass parses the htsget "class" query parameter.
func ParseClass(s string) (Class, error) {
	switch s {
	case "", "full":
		return ClassFull, nil
	case "header":
		return ClassHeader, nil
	default:
		return ClassFull, fmt.Errorf("unknown class %q", s)
	}
}

// Region defines a half-open, zero-based interval [Start, End) relative to a
// named reference. A nil Start is treated as 0 and a nil End is treated as
// the reference's length.
type Region struct {
	ReferenceName string
	Start, End    *uint64
}

// AllMappedReads is the region that matches every mapped read in a file.
var AllMappedReads = Region{}

// IsWholeFile reports whether the region places no constraint on the data at
// all (no reference name given).
func (r Region) IsWholeFile() bool {
	return r.ReferenceName == ""
}

// Resolved returns concrete start/end bounds given the reference's length,
// applying the "missing start/end" defaulting rules from the htsget spec.
func (r Region) Resolved(referenceLength uint64) (start, end uint64) {
	if r.Start != nil {
		start = *r.Start
	}
	if r.End != nil {
		end = *r.End
	} else {
		end = referenceLength
	}
	return start, end
}

// Validate checks the start/end invariant (start <= end). It does not know
// about the reference dictionary; callers must check ReferenceName validity
// and the start >= referenceLength boundary case themselves, since those
// require information this type does not carry.
func (r Region) Validate() error {
	if r.Start != nil && r.End != nil && *r.Start > *r.End {
		return fmt.Errorf("invalid region %s: start (%d) > end (%d)", r.ReferenceName, *r.Start, *r.End)
	}
	return nil
}

func (r Region) String() string {
	start, end := "-", "-"
	if r.Start != nil {
		start = fmt.Sprintf("%d", *r.Start)
	}
	if r.End != nil {
		end = fmt.Sprintf("%d", *r.End)
	}
	if r.ReferenceName == "" {
		return "[whole file]"
	}
	return fmt.Sprintf("%s:%s-%s", r.ReferenceName, start, end)
}

// ReferenceDictionary maps reference names to their lengths, as extracted
// from a container's header by the format resolver.
type ReferenceDictionary struct {
	order  []string
	byName map[string]uint64
}

// NewReferenceDictionary returns an empty dictionary.
func NewReferenceDictionary() *ReferenceDictionary {
	return &ReferenceDictionary{byName: make(map[string]uint64)}
}

// Add records a reference and its length, preserving insertion order so the
// dictionary can report a reference's integer ID (its index) when a format
// needs one, e.g. BAM/BCF bin indexes are keyed by reference ID rather than
// name.
func (d *ReferenceDictionary) Add(name string, length uint64) {
	if _, ok := d.byName[name]; !ok {
		d.order = append(d.order, name)
	}
	d.byName[name] = length
}

// Length returns the named reference's length and whether it exists.
func (d *ReferenceDictionary) Length(name string) (uint64, bool) {
	l, ok := d.byName[name]
	return l, ok
}

// ID returns the 0-based index of name in insertion order, or -1 if absent.
func (d *ReferenceDictionary) ID(name string) int {
	for i, n := range d.order {
		if n == name {
			return i
		}
	}
	return -1
}

// Names returns the reference names in insertion (dictionary) order.
func (d *ReferenceDictionary) Names() []string {
	return d.order
}
