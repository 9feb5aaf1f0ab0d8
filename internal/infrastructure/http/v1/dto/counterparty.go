package dto

import (
	"github.com/phompasit/finance-sub002/internal/domain/counterparty"
)

// --- Request DTOs ---

// CreateCounterpartyRequest creates a counterparty.
type CreateCounterpartyRequest struct {
	Code    string  `json:"code,omitempty"`
	Name    string  `json:"name" binding:"required"`
	Type    string  `json:"type" binding:"required"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateCounterpartyRequest) ToEntity() *counterparty.Counterparty {
	cp := counterparty.NewCounterparty(r.Code, r.Name, counterparty.CounterpartyType(r.Type))
	cp.Phone = r.Phone
	cp.Email = r.Email
	cp.Comment = r.Comment
	return cp
}

// UpdateCounterpartyRequest updates a counterparty. Nil fields are untouched.
type UpdateCounterpartyRequest struct {
	Code    *string `json:"code,omitempty"`
	Name    *string `json:"name,omitempty"`
	Type    *string `json:"type,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Comment *string `json:"comment,omitempty"`
	Version int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies updates to an existing entity.
func (r *UpdateCounterpartyRequest) ApplyTo(cp *counterparty.Counterparty) {
	if r.Code != nil {
		cp.Code = *r.Code
	}
	if r.Name != nil {
		cp.Name = *r.Name
	}
	if r.Type != nil {
		cp.Type = counterparty.CounterpartyType(*r.Type)
	}
	if r.Phone != nil {
		cp.Phone = r.Phone
	}
	if r.Email != nil {
		cp.Email = r.Email
	}
	if r.Comment != nil {
		cp.Comment = r.Comment
	}
}

// --- Response DTOs ---

// CounterpartyResponse represents a counterparty in API responses.
type CounterpartyResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	Comment      *string `json:"comment,omitempty"`
	DeletionMark bool    `json:"deletionMark,omitempty"`
	Version      int     `json:"version"`
}

// FromCounterparty converts domain entity to response DTO.
func FromCounterparty(cp *counterparty.Counterparty) *CounterpartyResponse {
	return &CounterpartyResponse{
		ID:           cp.ID.String(),
		Code:         cp.Code,
		Name:         cp.Name,
		Type:         string(cp.Type),
		Phone:        cp.Phone,
		Email:        cp.Email,
		Comment:      cp.Comment,
		DeletionMark: cp.DeletionMark,
		Version:      cp.Version,
	}
}

// CounterpartyListResponse represents a page of counterparties.
type CounterpartyListResponse struct {
	Items      []*CounterpartyResponse `json:"items"`
	TotalCount int                     `json:"totalCount"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}
