package domain

import "time"

// ServiceType classifies the public services citizens can request
// (water, lighting, road repair, waste collection, ...).
type ServiceType struct {
	ID          string
	Name        string
	Description string
	IconClass   string
	IsActive    bool
	CreatedAt   time.Time
}

// ServiceArea is a geographic zone of the municipality.
type ServiceArea struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
}
