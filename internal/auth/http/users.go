package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
)

// UsersHandler serves the account endpoints.
type UsersHandler struct {
	Users *service.UserService
}

// HandleMe handles GET /v1/users/me
//
//	@Summary		Current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/users/me [get]
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	user, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleChangePassword handles PUT /v1/users/me/password
//
//	@Summary		Change password
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_credentials or invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/users/me/password [put]
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /v1/users
//
//	@Summary		List users
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			offset	query		int	false	"Rows to skip"
//	@Param			limit	query		int	false	"Page size, at most 100"
//	@Success		200		{object}	authsdk.UserListResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/v1/users [get]
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, ok := queryInt(w, q.Get("offset"), 0)
	if !ok {
		return
	}
	limit, ok := queryInt(w, q.Get("limit"), service.MaxPageSize)
	if !ok {
		return
	}
	if limit == 0 || limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}

	users, err := h.Users.ListUsers(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := authsdk.UserListResponse{
		Users:  make([]authsdk.UserResponse, 0, len(users)),
		Offset: offset,
		Limit:  limit,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, userResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/users/{id}
//
//	@Summary		Get a user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"User id"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/users/{id} [get]
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleUpdate handles PUT /v1/users/{id}
//
//	@Summary		Update a user
//	@Description	Changes the name or role of a user. Omitted fields are left as they are. A new role reaches the user's tokens at their next refresh.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"User id"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/users/{id} [put]
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req authsdk.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := service.ProfileUpdate{FirstName: req.FirstName, LastName: req.LastName}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		upd.Role = &role
	}

	user, err := h.Users.UpdateUser(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleSetBlocked handles PUT /v1/users/{id}/block
//
//	@Summary		Block or unblock a user
//	@Description	Blocked users cannot log in, refresh or complete a two-factor login.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"User id"
//	@Param			request	body		authsdk.SetBlockedRequest	true	"Blocked flag"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/users/{id}/block [put]
func (h *UsersHandler) HandleSetBlocked(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req authsdk.SetBlockedRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Users.SetBlocked(r.Context(), id, *req.Blocked)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleDelete handles DELETE /v1/users/{id}
//
//	@Summary		Delete a user
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	int	true	"User id"
//	@Success		204
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/users/{id} [delete]
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeInvalidRequest(w, "invalid user id")
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeInvalidRequest(w, "offset and limit must be non-negative integers")
		return 0, false
	}
	return n, true
}
