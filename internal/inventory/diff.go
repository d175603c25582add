package inventory

import (
	"sort"

	"github.com/kasaops/kasascan/internal/device"
)

// Change pairs the baseline and current observation of one device.
type Change struct {
	Before device.Record
	After  device.Record
}

// Changes is the structural difference between two generations of the
// device population, keyed by hardware address. A record may appear in
// both IPChanged and NameChanged; the sets are independent.
type Changes struct {
	Added       []device.Record
	Removed     []device.Record
	IPChanged   []Change
	NameChanged []Change
}

// Empty reports whether no changes were detected. This is a valid,
// reportable outcome distinct from "diff not computed".
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 &&
		len(c.IPChanged) == 0 && len(c.NameChanged) == 0
}

// Diff compares a baseline generation against the current one. Devices
// are identified by hardware address; IP and name are observations, so
// a device that moved or was renamed is reported as changed, not as
// removed-plus-added. Output slices are ordered by MAC.
func Diff(baseline, current []device.Record) *Changes {
	before := byMAC(baseline)
	after := byMAC(current)

	c := &Changes{}
	for mac, rec := range after {
		old, ok := before[mac]
		if !ok {
			c.Added = append(c.Added, rec)
			continue
		}
		if old.IP != rec.IP {
			c.IPChanged = append(c.IPChanged, Change{Before: old, After: rec})
		}
		if old.Name != rec.Name {
			c.NameChanged = append(c.NameChanged, Change{Before: old, After: rec})
		}
	}
	for mac, rec := range before {
		if _, ok := after[mac]; !ok {
			c.Removed = append(c.Removed, rec)
		}
	}

	sort.Slice(c.Added, func(i, j int) bool { return c.Added[i].MAC < c.Added[j].MAC })
	sort.Slice(c.Removed, func(i, j int) bool { return c.Removed[i].MAC < c.Removed[j].MAC })
	sort.Slice(c.IPChanged, func(i, j int) bool { return c.IPChanged[i].After.MAC < c.IPChanged[j].After.MAC })
	sort.Slice(c.NameChanged, func(i, j int) bool { return c.NameChanged[i].After.MAC < c.NameChanged[j].After.MAC })
	return c
}

// byMAC indexes records by hardware address. Within one generation a
// later record for the same address replaces the earlier one, matching
// the transport's merge rule.
func byMAC(records []device.Record) map[string]device.Record {
	m := make(map[string]device.Record, len(records))
	for _, r := range records {
		if r.MAC == "" {
			continue
		}
		m[r.MAC] = r
	}
	return m
}
