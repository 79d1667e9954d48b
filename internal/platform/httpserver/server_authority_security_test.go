package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	authorityservice "mandata/contexts/property-authority/authority-service"
)

func newTestServer() *Server {
	return New(authorityservice.NewInMemoryModule(nil), nil, ":0")
}

func setAuthorityHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("X-Request-Id", "req-authority-1")
	req.Header.Set("X-Org-Id", "org-1")
	req.Header.Set("X-User-Id", "user-1")
}

func TestResolveRequiresAuthorizationHeader(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/authority/v1/resolve",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","authority_type":"APPROVE_EXPENSE"}`)))
	setAuthorityHeaders(req)
	req.Header.Del("Authorization")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestResolveRequiresRequestIDHeader(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/authority/v1/resolve",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","authority_type":"APPROVE_EXPENSE"}`)))
	setAuthorityHeaders(req)
	req.Header.Del("X-Request-Id")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestResolveRequiresOrgHeader(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/authority/v1/resolve",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","authority_type":"APPROVE_EXPENSE"}`)))
	setAuthorityHeaders(req)
	req.Header.Del("X-Org-Id")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateOwnershipRequiresActorHeader(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/authority/v1/ownerships",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","role":"OWNER"}`)))
	setAuthorityHeaders(req)
	req.Header.Set("Idempotency-Key", "own-create-1")
	req.Header.Del("X-User-Id")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateOwnershipRequiresIdempotencyKey(t *testing.T) {
	server := newTestServer()
	server.authority.Store.SeedParty(testParty("org-1", "party-1"))

	req := httptest.NewRequest(http.MethodPost, "/api/authority/v1/ownerships",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","role":"OWNER"}`)))
	setAuthorityHeaders(req)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateOwnershipRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/authority/v1/ownerships",
		bytes.NewReader([]byte(`{not json`)))
	setAuthorityHeaders(req)
	req.Header.Set("Idempotency-Key", "own-create-2")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGetOwnershipOtherTenantIsNotFound(t *testing.T) {
	server := newTestServer()
	server.authority.Store.SeedParty(testParty("org-2", "party-1"))

	createReq := httptest.NewRequest(http.MethodPost, "/api/authority/v1/ownerships",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","role":"OWNER"}`)))
	setAuthorityHeaders(createReq)
	createReq.Header.Set("X-Org-Id", "org-2")
	createReq.Header.Set("Idempotency-Key", "own-create-3")

	created := httptest.NewRecorder()
	server.mux.ServeHTTP(created, createReq)
	if created.Code != http.StatusCreated {
		t.Fatalf("seed create failed: %d body=%s", created.Code, created.Body.String())
	}

	var createResp struct {
		Data struct {
			OwnershipID string `json:"ownership_id"`
		} `json:"data"`
	}
	if err := jsonDecode(created.Body.Bytes(), &createResp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	// Same record id, different tenant header.
	getReq := httptest.NewRequest(http.MethodGet, "/api/authority/v1/ownerships/"+createResp.Data.OwnershipID, nil)
	setAuthorityHeaders(getReq)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, getReq)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for cross-tenant read, got %d body=%s", rr.Code, rr.Body.String())
	}
}
