package controllers

import (
	"net/http"

	"github.com/oms-labs/oms-backend/api/responses"
	"github.com/oms-labs/oms-backend/api/validators"
	userssvc "github.com/oms-labs/oms-backend/internal/users"
	"github.com/oms-labs/oms-backend/pkg/logger"
)

type registerRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	CountryCode   string `json:"country_code"`
	PrimaryMobile string `json:"primary_mobile"`
}

// Register creates a customer account.
func Register(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Register(r.Context(), userssvc.RegisterInput{
			Email:         payload.Email,
			Password:      payload.Password,
			FirstName:     validators.SanitizeString(payload.FirstName, 100),
			LastName:      validators.SanitizeString(payload.LastName, 100),
			CountryCode:   validators.SanitizeString(payload.CountryCode, 8),
			PrimaryMobile: validators.SanitizeString(payload.PrimaryMobile, 32),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusCreated, "account created", user)
	}
}

// GetProfile returns the authenticated user's account.
func GetProfile(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.GetProfile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}

// DeleteAccount removes the authenticated user and tears down their cart
// in the same transaction.
func DeleteAccount(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.DeleteAccount(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "account deleted", map[string]int64{
			"cart_items_removed": removed,
		})
	}
}
