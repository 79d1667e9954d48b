package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	authorityservice "mandata/contexts/property-authority/authority-service"
	"mandata/contexts/property-authority/authority-service/application/queries"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	authorityhttp "mandata/contexts/property-authority/authority-service/transport/http"
	_ "mandata/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	authority authorityservice.Module
}

func New(
	authority authorityservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		authority: authority,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/authority/v1/ownerships", s.handleCreateOwnership)
	s.mux.HandleFunc("GET /api/authority/v1/ownerships", s.handleListOwnerships)
	s.mux.HandleFunc("GET /api/authority/v1/ownerships/{ownership_id}", s.handleGetOwnership)
	s.mux.HandleFunc("POST /api/authority/v1/ownerships/{ownership_id}/update", s.handleUpdateOwnership)
	s.mux.HandleFunc("POST /api/authority/v1/ownerships/{ownership_id}/verify", s.handleVerifyOwnership)
	s.mux.HandleFunc("POST /api/authority/v1/ownerships/{ownership_id}/terminate", s.handleTerminateOwnership)
	s.mux.HandleFunc("DELETE /api/authority/v1/ownerships/{ownership_id}", s.handleDeleteOwnership)

	s.mux.HandleFunc("POST /api/authority/v1/grants", s.handleGrantAuthority)
	s.mux.HandleFunc("GET /api/authority/v1/grants", s.handleListGrants)
	s.mux.HandleFunc("POST /api/authority/v1/grants/{grant_id}/accept", s.handleAcceptGrant)
	s.mux.HandleFunc("POST /api/authority/v1/grants/{grant_id}/revoke", s.handleRevokeGrant)

	s.mux.HandleFunc("POST /api/authority/v1/resolve", s.handleResolveAuthority)
}

func requireAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeAuthorityError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

func requireRequestID(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Request-Id")) == "" {
		writeAuthorityError(w, http.StatusBadRequest, "request_id_required", "X-Request-Id header is required")
		return false
	}
	return true
}

// resolveOrgID reads the tenant scope every authority route runs under.
func resolveOrgID(w http.ResponseWriter, r *http.Request) (string, bool) {
	orgID := strings.TrimSpace(r.Header.Get("X-Org-Id"))
	if orgID == "" {
		writeAuthorityError(w, http.StatusBadRequest, "org_required", "X-Org-Id header is required")
		return "", false
	}
	return orgID, true
}

func resolveActorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if actorID == "" {
		writeAuthorityError(w, http.StatusUnauthorized, "actor_required", "X-User-Id header is required")
		return "", false
	}
	return actorID, true
}

func (s *Server) guardRead(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !requireAuthorization(w, r) || !requireRequestID(w, r) {
		return "", false
	}
	return resolveOrgID(w, r)
}

func (s *Server) guardMutation(w http.ResponseWriter, r *http.Request) (string, string, string, bool) {
	if !requireAuthorization(w, r) || !requireRequestID(w, r) {
		return "", "", "", false
	}
	orgID, ok := resolveOrgID(w, r)
	if !ok {
		return "", "", "", false
	}
	actorID, ok := resolveActorID(w, r)
	if !ok {
		return "", "", "", false
	}
	return orgID, actorID, r.Header.Get("Idempotency-Key"), true
}

func (s *Server) handleCreateOwnership(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	var req authorityhttp.CreateOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthorityError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authority.Handler.CreateOwnershipHandler(r.Context(), orgID, actorID, idempotencyKey, req)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListOwnerships(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.guardRead(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	resp, err := s.authority.Handler.ListOwnershipsHandler(r.Context(), queries.ListOwnershipsQuery{
		OrgID:             orgID,
		PropertyID:        query.Get("property_id"),
		PartyID:           query.Get("party_id"),
		IncludeTerminated: query.Get("include_terminated") == "true",
	})
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOwnership(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.guardRead(w, r)
	if !ok {
		return
	}
	resp, err := s.authority.Handler.GetOwnershipHandler(r.Context(), orgID, r.PathValue("ownership_id"))
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateOwnership(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	var req authorityhttp.UpdateOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthorityError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authority.Handler.UpdateOwnershipHandler(
		r.Context(), orgID, actorID, r.PathValue("ownership_id"), idempotencyKey, req)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyOwnership(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	resp, err := s.authority.Handler.VerifyOwnershipHandler(
		r.Context(), orgID, actorID, r.PathValue("ownership_id"), idempotencyKey)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTerminateOwnership(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	resp, err := s.authority.Handler.TerminateOwnershipHandler(
		r.Context(), orgID, actorID, r.PathValue("ownership_id"), idempotencyKey)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteOwnership(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	resp, err := s.authority.Handler.DeleteOwnershipHandler(
		r.Context(), orgID, actorID, r.PathValue("ownership_id"), idempotencyKey)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGrantAuthority(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	var req authorityhttp.GrantAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthorityError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authority.Handler.GrantAuthorityHandler(r.Context(), orgID, actorID, idempotencyKey, req)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.guardRead(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	resp, err := s.authority.Handler.ListAuthoritiesHandler(r.Context(), queries.ListAuthoritiesQuery{
		OrgID:           orgID,
		OwnershipID:     query.Get("ownership_id"),
		DelegatePartyID: query.Get("delegate_party_id"),
		PropertyID:      query.Get("property_id"),
	})
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAcceptGrant(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	resp, err := s.authority.Handler.AcceptAuthorityHandler(
		r.Context(), orgID, actorID, r.PathValue("grant_id"), idempotencyKey)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	orgID, actorID, idempotencyKey, ok := s.guardMutation(w, r)
	if !ok {
		return
	}
	var req authorityhttp.RevokeAuthorityRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAuthorityError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	resp, err := s.authority.Handler.RevokeAuthorityHandler(
		r.Context(), orgID, actorID, r.PathValue("grant_id"), idempotencyKey, req)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolveAuthority(w http.ResponseWriter, r *http.Request) {
	orgID, ok := s.guardRead(w, r)
	if !ok {
		return
	}
	var req authorityhttp.ResolveAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthorityError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.authority.Handler.ResolveAuthorityHandler(r.Context(), orgID, req)
	if err != nil {
		writeAuthorityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeAuthorityDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, domainerrors.ErrOwnershipNotFound),
		errors.Is(err, domainerrors.ErrPartyNotFound),
		errors.Is(err, domainerrors.ErrGrantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainerrors.ErrForbidden),
		errors.Is(err, domainerrors.ErrRoleCannotGrant),
		errors.Is(err, domainerrors.ErrNotDelegateParty):
		status = http.StatusForbidden
	case errors.Is(err, domainerrors.ErrInvalidOwnershipInput),
		errors.Is(err, domainerrors.ErrInvalidRole),
		errors.Is(err, domainerrors.ErrInvalidPercent),
		errors.Is(err, domainerrors.ErrInvalidAuthorityType),
		errors.Is(err, domainerrors.ErrInvalidMonetaryLimit),
		errors.Is(err, domainerrors.ErrInvalidExpiry):
		status = http.StatusBadRequest
	case errors.Is(err, domainerrors.ErrSelfDelegation),
		errors.Is(err, domainerrors.ErrNoActiveOwner):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domainerrors.ErrLastActiveOwner),
		errors.Is(err, domainerrors.ErrGrantNotPending),
		errors.Is(err, domainerrors.ErrGrantNotRevocable),
		errors.Is(err, domainerrors.ErrOwnershipTerminated),
		errors.Is(err, domainerrors.ErrOwnershipVerified),
		errors.Is(err, domainerrors.ErrDuplicateGrant),
		errors.Is(err, domainerrors.ErrDuplicateOwnership),
		errors.Is(err, domainerrors.ErrIdempotencyConflict),
		errors.Is(err, domainerrors.ErrIdempotencyInFlight):
		status = http.StatusConflict
	case errors.Is(err, domainerrors.ErrIdempotencyKeyRequired):
		status = http.StatusBadRequest
	}

	if status != http.StatusInternalServerError {
		message = err.Error()
		if mapped, ok := domainerrors.CodeOf(err); ok {
			code = mapped
		} else {
			switch {
			case errors.Is(err, domainerrors.ErrIdempotencyKeyRequired):
				code = "idempotency_key_required"
			case errors.Is(err, domainerrors.ErrIdempotencyConflict):
				code = "idempotency_conflict"
			case errors.Is(err, domainerrors.ErrIdempotencyInFlight):
				code = "idempotency_in_flight"
			}
		}
	}

	writeAuthorityError(w, status, code, message)
}

func writeAuthorityError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, authorityhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
