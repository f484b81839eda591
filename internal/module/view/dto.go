package view

import (
	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
	"github.com/simp-lee/vaultfeed/internal/presentation"
)

// CreateViewRequest opens a view. Omitted fields take the defaults.
type CreateViewRequest struct {
	Filter string `json:"filter" binding:"omitempty,oneof=all minting sales"`
	SortBy string `json:"sort_by" binding:"omitempty,oneof=latest-first oldest-first"`
	Page   *int   `json:"page"`
}

func (r CreateViewRequest) state() feed.State {
	state := feed.DefaultState()
	if r.Filter != "" {
		state.Filter = domain.ActivityFilter(r.Filter)
	}
	if r.SortBy != "" {
		state.SortBy = domain.SortBy(r.SortBy)
	}
	if r.Page != nil {
		state.Page = *r.Page
	}
	return state
}

// UpdateViewRequest changes any subset of a view's state.
type UpdateViewRequest struct {
	Filter *string `json:"filter" binding:"omitempty,oneof=all minting sales"`
	SortBy *string `json:"sort_by" binding:"omitempty,oneof=latest-first oldest-first"`
	Page   *int    `json:"page"`
}

func (r UpdateViewRequest) patch() Patch {
	var p Patch
	if r.Filter != nil {
		f := domain.ActivityFilter(*r.Filter)
		p.Filter = &f
	}
	if r.SortBy != nil {
		s := domain.SortBy(*r.SortBy)
		p.SortBy = &s
	}
	p.Page = r.Page
	return p
}

// IDURI binds the :id path parameter.
type IDURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// VaultURI binds the :vault path parameter.
type VaultURI struct {
	Vault string `uri:"vault" binding:"required,max=64"`
}

// ViewportQuery carries the client's viewport width.
type ViewportQuery struct {
	Width int `form:"width" binding:"omitempty,min=0"`
}

// ViewResponse is a view's identity plus its rendered page.
type ViewResponse struct {
	ID    string `json:"id"`
	Vault string `json:"vault"`
	presentation.Page
}
