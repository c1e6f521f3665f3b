package handler

import (
	"net/http"

	"forumhub/internal/httputil"
	"forumhub/internal/model"
	"forumhub/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Me handles GET /users/profile
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Me")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// GetProfile handles GET /users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "GetProfile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "ListUsers")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// Search handles GET /users/search/{name}
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	name, ok := pathText(w, r, "name")
	if !ok {
		return
	}
	users, err := h.userService.Search(r.Context(), name)
	if err != nil {
		writeServiceError(w, err, "SearchUsers")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// Update handles PUT /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), targetID, caller, req)
	if err != nil {
		writeServiceError(w, err, "UpdateUser")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), targetID, caller); err != nil {
		writeServiceError(w, err, "DeleteUser")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"msg": "User deleted"})
}
