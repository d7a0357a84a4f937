// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

// Category identifies the classification a vision provider assigned to a
// camera frame.
type Category string

const (
	CategoryFace      Category = "face"
	CategoryFall      Category = "fall"
	CategoryTheft     Category = "theft"
	CategoryFire      Category = "fire"
	CategoryPerson    Category = "person"
	CategoryVehicle   Category = "vehicle"
	CategoryIntrusion Category = "intrusion"
	CategoryMotion    Category = "motion"
	CategoryObject    Category = "object"
)

// Categories lists every known detection category in a stable order.
var Categories = []Category{
	CategoryFace,
	CategoryFall,
	CategoryTheft,
	CategoryFire,
	CategoryPerson,
	CategoryVehicle,
	CategoryIntrusion,
	CategoryMotion,
	CategoryObject,
}

// Known reports whether the category is one the platform understands.
func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// EmergencyType identifies the class of an emergency incident.
type EmergencyType string

const (
	EmergencyTypeFire      EmergencyType = "fire"
	EmergencyTypeFall      EmergencyType = "fall"
	EmergencyTypeMedical   EmergencyType = "medical"
	EmergencyTypeSecurity  EmergencyType = "security"
	EmergencyTypeIntrusion EmergencyType = "intrusion"
)

// emergencyCategories maps detection categories to the emergency type they
// escalate to. Categories absent from the map never open an incident.
var emergencyCategories = map[Category]EmergencyType{
	CategoryFire:      EmergencyTypeFire,
	CategoryFall:      EmergencyTypeFall,
	CategoryTheft:     EmergencyTypeSecurity,
	CategoryIntrusion: EmergencyTypeIntrusion,
}

// EmergencyTypeFor returns the emergency type a detection category escalates
// to, or false if the category is not emergency-worthy.
func EmergencyTypeFor(c Category) (EmergencyType, bool) {
	t, ok := emergencyCategories[c]
	return t, ok
}
