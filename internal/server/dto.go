package server

import (
	"encoding/json"

	"jobline/internal/domain"
	"jobline/internal/engine"
)

type CreatePropertyRequest struct {
	ID             string   `json:"id,omitempty"`
	OwnerID        string   `json:"owner_id,omitempty"`
	Address        string   `json:"address" minLength:"1"`
	RegistryID     string   `json:"registry_id,omitempty" example:"301-12/45"`
	YearBuilt      *int     `json:"year_built,omitempty"`
	FloorArea      *float64 `json:"floor_area,omitempty"`
	Type           string   `json:"type,omitempty"`
	EnergyGrade    string   `json:"energy_grade,omitempty"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`
}

func (r CreatePropertyRequest) options() engine.PropertyOptions {
	return engine.PropertyOptions{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Address:        r.Address,
		RegistryID:     r.RegistryID,
		YearBuilt:      r.YearBuilt,
		FloorArea:      r.FloorArea,
		Type:           r.Type,
		EnergyGrade:    r.EnergyGrade,
		EstimatedValue: r.EstimatedValue,
	}
}

type RecommendRequest struct {
	PropertyID       string             `json:"property_id" minLength:"1"`
	Title            string             `json:"title" minLength:"1"`
	Description      string             `json:"description,omitempty"`
	Address          string             `json:"address,omitempty"`
	BeforeImages     []string           `json:"before_images,omitempty"`
	RiskLevel        domain.RiskLevel   `json:"risk_level,omitempty" enum:"low,moderate,critical"`
	TechnicalGrade   int                `json:"technical_grade,omitempty" minimum:"0" maximum:"3"`
	ValueEffect      domain.ValueEffect `json:"value_effect,omitempty" enum:"protect,increase"`
	Driver           domain.Driver      `json:"driver,omitempty" enum:"maintenance,value"`
	CostEstimate     float64            `json:"cost_estimate,omitempty"`
	CostMin          *float64           `json:"cost_min,omitempty"`
	CostMax          *float64           `json:"cost_max,omitempty"`
	ROIFactor        *float64           `json:"roi_factor,omitempty"`
	SubsidyAmount    *float64           `json:"subsidy_amount,omitempty"`
	PriorityScore    *int               `json:"priority_score,omitempty" minimum:"0" maximum:"100"`
	PredictedFailure string             `json:"predicted_failure,omitempty"`
	Horizon          string             `json:"horizon,omitempty"`
	Initiator        domain.Initiator   `json:"initiator,omitempty" enum:"customer,professional,system"`
}

func (r RecommendRequest) options() engine.RecommendOptions {
	return engine.RecommendOptions{
		PropertyID:       r.PropertyID,
		Title:            r.Title,
		Description:      r.Description,
		Address:          r.Address,
		BeforeImages:     r.BeforeImages,
		RiskLevel:        r.RiskLevel,
		TechnicalGrade:   r.TechnicalGrade,
		ValueEffect:      r.ValueEffect,
		Driver:           r.Driver,
		CostEstimate:     r.CostEstimate,
		CostMin:          r.CostMin,
		CostMax:          r.CostMax,
		ROIFactor:        r.ROIFactor,
		SubsidyAmount:    r.SubsidyAmount,
		PriorityScore:    r.PriorityScore,
		PredictedFailure: r.PredictedFailure,
		Horizon:          r.Horizon,
		Initiator:        r.Initiator,
	}
}

type QuoteRequest struct {
	Price float64 `json:"price" example:"12500"`
}

type CompleteRequest struct {
	AfterImages []string `json:"after_images,omitempty"`
}

type ExportRequest struct {
	Kind string `json:"kind" enum:"bank,insurance"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id" minLength:"1"`
	Role    string `json:"role" enum:"owner,professional,admin"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	Source  string `json:"source"`
}

type JobList struct {
	Items []domain.Job `json:"items"`
}

type PropertyList struct {
	Items []domain.Property `json:"items"`
}

type MaterialList struct {
	JobID string            `json:"job_id"`
	Items []domain.Material `json:"items"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
