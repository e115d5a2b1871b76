package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/plaidbridge/api/middleware"
	"github.com/angelmondragon/plaidbridge/api/responses"
	"github.com/angelmondragon/plaidbridge/api/validators"
	"github.com/angelmondragon/plaidbridge/internal/items"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
)

const (
	maxItemIDLen      = 128
	maxPublicTokenLen = 256
)

type linkTokenRequest struct {
	ItemID string `json:"item_id,omitempty" validate:"omitempty,max=128"`
}

type createItemRequest struct {
	PublicToken string `json:"public_token" validate:"required,max=256"`
}

type itemListResponse struct {
	Items      []items.ItemSummary `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// CreateLinkToken starts a Link session. Passing item_id opens update mode for that item.
func CreateLinkToken(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		var body linkTokenRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateLinkToken(r.Context(), items.LinkTokenRequest{
			ClientUserID: userID,
			ItemID:       validators.SanitizeString(body.ItemID, maxItemIDLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CreateItem exchanges a Link public token and stores the resulting item.
func CreateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Link(r.Context(), items.LinkItemRequest{
			ClientUserID: userID,
			PublicToken:  validators.SanitizeString(body.PublicToken, maxPublicTokenLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

func ListItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list := page.Items
		if list == nil {
			list = []items.ItemSummary{}
		}
		responses.WriteSuccess(w, itemListResponse{Items: list, NextCursor: page.NextCursor})
	}
}

func ItemAccounts(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := svc.Accounts(r.Context(), userID, itemIDParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SyncItemTransactions pulls every pending transactions/sync page for the item.
func SyncItemTransactions(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}
		result, err := svc.SyncTransactions(r.Context(), userID, itemIDParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DeleteItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}
		if err := svc.Remove(r.Context(), userID, itemIDParam(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func Categories(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, svc items.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "items service unavailable"))
		return "", false
	}
	userID := middleware.ClientUserIDFromContext(r.Context())
	if userID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "client user missing"))
		return "", false
	}
	return userID, true
}

func itemIDParam(r *http.Request) string {
	return validators.SanitizeString(chi.URLParam(r, "itemID"), maxItemIDLen)
}
