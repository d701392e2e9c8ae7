package policy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/client"
	"github.com/shreelakshmijoshi/iudx-aaa-server/pkg/errors"
)

// Handle exposes the delegation engine over HTTP
type Handle struct {
	delegations *DelegationService
	verifier    *Verifier
}

// NewHandle creates a new policy handler
func NewHandle(delegations *DelegationService, verifier *Verifier) *Handle {
	return &Handle{
		delegations: delegations,
		verifier:    verifier,
	}
}

// RegisterRoutes registers the delegation and verification routes
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/delegations", func(r chi.Router) {
		r.Get("/", h.ListDelegations)
		r.Post("/", h.CreateDelegations)
		r.Delete("/", h.DeleteDelegations)
		r.Get("/emails", h.GetDelegateEmails)
	})
	r.Post("/verify", h.VerifyResourceAccess)
}

type itemResultResponse struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

type delegationResponse struct {
	ID                string `json:"id"`
	OwnerID           string `json:"owner_id"`
	DelegateID        string `json:"delegate_id"`
	Role              string `json:"role"`
	ResourceServerURL string `json:"resource_server_url"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
	Direction         string `json:"direction"`
}

type verifyRequest struct {
	Token          RequestToken           `json:"token"`
	DelegationInfo *DelegationInformation `json:"delegation_info,omitempty"`
}

func itemResults(results []ItemResult) []itemResultResponse {
	response := make([]itemResultResponse, 0, len(results))
	for _, res := range results {
		item := itemResultResponse{
			Index:  res.Index,
			Status: string(res.Status),
		}
		if res.ID != uuid.Nil {
			item.ID = res.ID.String()
		}
		if res.Err != nil {
			item.Reason = string(errors.GetCode(res.Err))
			item.Message = res.Err.Error()
		}
		response = append(response, item)
	}
	return response
}

// userFromContext converts the authenticated user placed in the request
// context by client.AuthUserMiddleware into the engine's User model
func userFromContext(r *http.Request) (User, bool) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok || authUser.UserUuid == uuid.Nil {
		return User{}, false
	}

	roles := make([]Roles, 0, len(authUser.ExtraClaims.Roles))
	for _, name := range authUser.ExtraClaims.Roles {
		role := Roles(name)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}

	return User{
		ID:    authUser.UserUuid,
		Name:  authUser.DisplayName,
		Email: authUser.ExtraClaims.Email,
		Roles: roles,
	}, true
}

// CreateDelegations handles the batch create request
// (POST /delegations)
func (h *Handle) CreateDelegations(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var requests []CreateDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(requests) == 0 {
		http.Error(w, "Request list must not be empty", http.StatusBadRequest)
		return
	}

	results := h.delegations.CreateDelegation(r.Context(), requests, user)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{"results": itemResults(results)})
}

// ListDelegations handles the list request for the calling user
// (GET /delegations)
func (h *Handle) ListDelegations(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	views, err := h.delegations.ListDelegation(r.Context(), user)
	if err != nil {
		slog.Error("Failed listing delegations", "err", err, "userId", user.ID)
		writeError(w, err)
		return
	}

	response := make([]delegationResponse, 0, len(views))
	for _, view := range views {
		response = append(response, delegationResponse{
			ID:                view.ID.String(),
			OwnerID:           view.OwnerID.String(),
			DelegateID:        view.DelegateID.String(),
			Role:              string(view.Role),
			ResourceServerURL: view.ResourceServerURL,
			Status:            string(view.Status),
			CreatedAt:         view.CreatedAt.Format(time.RFC3339),
			Direction:         string(view.Direction),
		})
	}

	render.JSON(w, r, map[string]interface{}{"delegations": response})
}

// DeleteDelegations handles the batch delete request
// (DELETE /delegations)
func (h *Handle) DeleteDelegations(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var requests []DeleteDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(requests) == 0 {
		http.Error(w, "Request list must not be empty", http.StatusBadRequest)
		return
	}

	results := h.delegations.DeleteDelegation(r.Context(), requests, user)

	render.JSON(w, r, map[string]interface{}{"results": itemResults(results)})
}

// GetDelegateEmails handles the trustee email lookup
// (GET /delegations/emails?delegator_id=&role=&resource_server=)
func (h *Handle) GetDelegateEmails(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	delegatorID, err := uuid.Parse(r.URL.Query().Get("delegator_id"))
	if err != nil {
		http.Error(w, "Invalid delegator_id", http.StatusBadRequest)
		return
	}

	role := Roles(r.URL.Query().Get("role"))
	if !role.IsValid() {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	resourceServer := r.URL.Query().Get("resource_server")
	if resourceServer == "" {
		http.Error(w, "Missing resource_server", http.StatusBadRequest)
		return
	}

	emails, err := h.delegations.GetDelegateEmails(r.Context(), user, delegatorID, role, resourceServer)
	if err != nil {
		slog.Error("Failed getting delegate emails", "err", err, "userId", user.ID, "delegatorId", delegatorID)
		writeError(w, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"emails": emails})
}

// VerifyResourceAccess handles the access verification request
// (POST /verify)
func (h *Handle) VerifyResourceAccess(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	decision, err := h.verifier.VerifyResourceAccess(r.Context(), req.Token, req.DelegationInfo, user)
	if err != nil {
		slog.Error("Failed verifying resource access", "err", err, "userId", user.ID)
		writeError(w, err)
		return
	}

	render.JSON(w, r, decision)
}

// writeError renders a coded error with its mapped HTTP status
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.MapErrorCodeToHTTPStatus(code))
	json.NewEncoder(w).Encode(map[string]string{
		"reason":  string(code),
		"message": err.Error(),
	})
}
