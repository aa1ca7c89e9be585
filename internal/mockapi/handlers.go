package mockapi

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/logger"
	"github.com/nkiryanov/miniappauth/internal/mockapi/render"
	"github.com/nkiryanov/miniappauth/internal/mockapi/userctx"
)

type handlers struct {
	service *service
	logger  logger.Logger
}

func (h *handlers) telegramAuth(w http.ResponseWriter, r *http.Request) {
	type TelegramAuthRequest struct {
		InitData string `json:"initData" validate:"required"`
	}

	data, err := render.BindAndValidate[TelegramAuthRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.service.TelegramAuth(r.Context(), data.InitData)
	if err != nil {
		h.logger.Info("Telegram auth rejected", "error", err)
		render.FieldErrors(w, map[string][]string{"initData": {"Invalid Telegram init data"}})
		return
	}

	render.JSON(w, pair)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.service.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrRefreshTokenIsUsed):
			render.ServiceError(w, "Refresh token already used", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		}
		return
	}

	render.JSON(w, pair)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	data, err := render.BindAndValidate[LogoutRequest](w, r)
	if err != nil {
		return
	}

	if err := h.service.Logout(r.Context(), data.RefreshToken); err != nil {
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		return
	}

	render.Success(w)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := userctx.FromContext(r.Context())

	if err := h.service.LogoutAll(r.Context(), userID); err != nil {
		h.logger.Error("Logout all failed", "user_id", userID, "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.Success(w)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := userctx.FromContext(r.Context())

	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		render.ServiceError(w, "User not found", http.StatusNotFound)
		return
	}

	render.JSON(w, user)
}

func (h *handlers) deleteMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userctx.FromContext(r.Context())

	if err := h.service.DeleteMe(r.Context(), userID); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			render.ServiceError(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Account deletion failed", "user_id", userID, "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Account deleted", "user_id", userID)
	render.Success(w)
}
