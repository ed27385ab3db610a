package site

import (
	"encoding/json"
	"strings"
)

// SiteType classifies the monitored structure.
type SiteType string

const (
	SiteTypeBridge   SiteType = "bridge"
	SiteTypeBuilding SiteType = "building"
	SiteTypeTunnel   SiteType = "tunnel"
	SiteTypeDam      SiteType = "dam"
	SiteTypeTower    SiteType = "tower"
	SiteTypePipeline SiteType = "pipeline"
	SiteTypeOther    SiteType = "other"
)

func (t SiteType) Valid() bool {
	switch t {
	case SiteTypeBridge, SiteTypeBuilding, SiteTypeTunnel, SiteTypeDam,
		SiteTypeTower, SiteTypePipeline, SiteTypeOther:
		return true
	}
	return false
}

// UnmarshalJSON maps unknown backend values to SiteTypeOther.
func (t *SiteType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := SiteType(strings.ToLower(strings.TrimSpace(raw)))
	if !parsed.Valid() {
		parsed = SiteTypeOther
	}
	*t = parsed
	return nil
}

// Site is a monitored location as returned by the backend. Read-only here.
type Site struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	CustomerName string   `json:"customerName"`
	SiteType     SiteType `json:"siteType"`
}

// Lookup returns the site with the given id, or nil.
func Lookup(sites []Site, id *int64) *Site {
	if id == nil {
		return nil
	}
	for i := range sites {
		if sites[i].ID == *id {
			s := sites[i]
			return &s
		}
	}
	return nil
}
