package beacon

import "fmt"

// Profile describes one beacon hardware model and its calibrated
// measured power (RSSI at 1 meter, dBm).
type Profile struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"name"`
	MeasuredPower float64 `json:"measured_power"`
}

// Catalog is an immutable table of known beacon hardware. The reference
// antenna is kept apart from the beacons and cannot be looked up as one.
type Catalog struct {
	reference Profile
	order     []string
	profiles  map[string]Profile
}

// NewCatalog builds a catalog from the reference antenna and the beacon
// profiles, preserving the given order.
func NewCatalog(reference Profile, beacons ...Profile) (*Catalog, error) {
	if reference.DisplayName == "" {
		return nil, fmt.Errorf("reference antenna %q has no display name", reference.ID)
	}

	c := &Catalog{
		reference: reference,
		order:     make([]string, 0, len(beacons)),
		profiles:  make(map[string]Profile, len(beacons)),
	}
	for _, p := range beacons {
		if p.ID == "" {
			return nil, fmt.Errorf("beacon profile with empty id")
		}
		if p.DisplayName == "" {
			return nil, fmt.Errorf("beacon %q has no display name", p.ID)
		}
		if _, dup := c.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate beacon id %q", p.ID)
		}
		c.order = append(c.order, p.ID)
		c.profiles[p.ID] = p
	}
	return c, nil
}

// Lookup returns the profile for id or an *UnknownBeaconError.
func (c *Catalog) Lookup(id string) (Profile, error) {
	p, ok := c.profiles[id]
	if !ok {
		return Profile{}, &UnknownBeaconError{ID: id}
	}
	return p, nil
}

// Has reports whether id is a beacon in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.profiles[id]
	return ok
}

// Reference returns the reference antenna profile.
func (c *Catalog) Reference() Profile {
	return c.reference
}

// Profiles returns the beacon profiles in catalog order.
func (c *Catalog) Profiles() []Profile {
	out := make([]Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.profiles[id])
	}
	return out
}

// IDs returns the beacon ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of beacon profiles.
func (c *Catalog) Len() int {
	return len(c.order)
}
