// Package httpapi exposes the services over a JSON HTTP API. Handlers do
// three things only: decode the request, call a service with the
// authenticated user ID from the context, and encode the result envelope.
// Business failures travel inside the envelope with a 200; protocol and
// infrastructure failures map to HTTP status codes.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tablemates/gamenight/internal/middleware"
	"github.com/tablemates/gamenight/internal/service"
)

// API bundles the services behind the HTTP handlers.
type API struct {
	auth       *service.AuthService
	groups     *service.GroupService
	attendance *service.AttendanceService
}

// New creates the API over the given services.
func New(auth *service.AuthService, groups *service.GroupService, attendance *service.AttendanceService) *API {
	return &API{
		auth:       auth,
		groups:     groups,
		attendance: attendance,
	}
}

// Register wires all routes into the mux. requireAuth wraps every route
// except registration and login.
func (a *API) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	authed("GET /api/groups", a.handleListGroups)
	authed("POST /api/groups", a.handleCreateGroup)
	authed("GET /api/groups/{ref}", a.handleGetGroup)
	authed("POST /api/groups/{ref}/join", a.handleJoinGroup)
	authed("POST /api/groups/{id}/leave", a.handleLeaveGroup)
	authed("POST /api/groups/{id}/members/{userID}/remove", a.handleRemoveMember)
	authed("POST /api/groups/{id}/admin/{userID}", a.handleTransferAdmin)
	authed("DELETE /api/groups/{id}", a.handleDeleteGroup)
	authed("PUT /api/groups/{id}/schedule", a.handleUpdateSchedule)
	authed("POST /api/groups/{id}/invite-code", a.handleRegenerateInviteCode)

	authed("POST /api/occurrences/{id}/respond", a.handleRespond)
	authed("POST /api/occurrences/{id}/host", a.handleVolunteerHost)
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type respondRequest struct {
	Status string `json:"status"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	respond(w, res, err)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	respond(w, res, err)
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.List(r.Context(), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var params service.CreateGroupParams
	if !decode(w, r, &params) {
		return
	}
	res, err := a.groups.Create(r.Context(), middleware.GetUserID(r.Context()), params)
	respond(w, res, err)
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.Get(r.Context(), r.PathValue("ref"), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func (a *API) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.Join(r.Context(), r.PathValue("ref"), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func (a *API) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.Leave(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.RemoveMember(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), r.PathValue("userID"))
	respond(w, res, err)
}

func (a *API) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.TransferAdmin(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), r.PathValue("userID"))
	respond(w, res, err)
}

func (a *API) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.Delete(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func (a *API) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var params service.CreateGroupParams
	if !decode(w, r, &params) {
		return
	}
	res, err := a.groups.UpdateSchedule(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), params)
	respond(w, res, err)
}

func (a *API) handleRegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	res, err := a.groups.RegenerateInviteCode(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func (a *API) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.attendance.Respond(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), req.Status)
	respond(w, res, err)
}

func (a *API) handleVolunteerHost(w http.ResponseWriter, r *http.Request) {
	res, err := a.attendance.VolunteerHost(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	respond(w, res, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// respond writes the result envelope, or a 500 when the service reported an
// infrastructure failure.
func respond(w http.ResponseWriter, res any, err error) {
	if err != nil {
		slog.Error("Request failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(res); encodeErr != nil {
		slog.Error("Failed to encode response", "error", encodeErr)
	}
}
