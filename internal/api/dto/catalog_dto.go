package dto

// ServiceTypeResponse represents a service-type catalog entry.
type ServiceTypeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconClass   string `json:"icon_class,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// ServiceAreaResponse represents a geographic service area.
type ServiceAreaResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}
