package models

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleChercheur Role = "chercheur"
)

// Megaprojet is the root of the project hierarchy.
type Megaprojet struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Sector      string     `json:"sector"`
	Coordinator string     `json:"coordinator"`
	Status      Status     `json:"status"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

type Axe struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Status       Status `json:"status"`
	MegaprojetID string `json:"megaprojet_id"`
}

// Activite keeps the upstream API's historical field casing on the wire.
// Code is unique across the whole system; the server enforces it and
// answers with a fixed duplicate-code message.
type Activite struct {
	ID           string `json:"_id"`
	Name         string `json:"ACTIVITE"`
	Code         string `json:"CodeActivite"`
	CRRA         string `json:"CRRA"`
	Status       Status `json:"status"`
	AxeID        string `json:"axe_id"`
	MegaprojetID string `json:"megaprojet_id"`
}

type Chercheur struct {
	ID             string     `json:"_id"`
	FullName       string     `json:"fullName"`
	CenterCode     string     `json:"codeCentre"`
	ResearcherCode string     `json:"code"`
	Status         Status     `json:"status"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// ActivityLog is one researcher/activity/day hour entry. The server keeps
// at most one log per (user, activite, day).
type ActivityLog struct {
	ID           string  `json:"_id"`
	UserID       string  `json:"user_id"`
	ActiviteID   string  `json:"activite_id"`
	AxeID        string  `json:"axe_id"`
	MegaprojetID string  `json:"megaprojet_id"`
	ActiviteName string  `json:"activite_name,omitempty"`
	Day          string  `json:"day"`
	Value        float64 `json:"value"`
}

// DayTotal is one bucket of the total-hours aggregation; the backend
// reuses the day string as the aggregation id.
type DayTotal struct {
	Day        string  `json:"_id"`
	TotalHours float64 `json:"totalHours"`
}

// Envelope is the common response shape of the upstream API: a human
// readable message doubling as a status code, plus an optional payload.
type Envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LoginResponse carries the login outcome. Status is "nonloged" when the
// credentials are rejected; Message then holds the reason to display.
type LoginResponse struct {
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
	Role      Role   `json:"role,omitempty"`
	ID        string `json:"id,omitempty"`
}

type CodeCentresResponse struct {
	CodeCentres []string `json:"codeCentres"`
}
