package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mandata/contexts/property-authority/authority-service/domain/entities"
)

func testParty(orgID string, partyID string) entities.Party {
	return entities.Party{
		PartyID:     partyID,
		OrgID:       orgID,
		DisplayName: partyID,
		IsActive:    true,
	}
}

func jsonDecode(data []byte, target any) error {
	return json.Unmarshal(data, target)
}

func TestResolveReturnsDecisionForActiveOwner(t *testing.T) {
	server := newTestServer()
	server.authority.Store.SeedParty(testParty("org-1", "party-1"))

	createReq := httptest.NewRequest(http.MethodPost, "/api/authority/v1/ownerships",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","role":"OWNER"}`)))
	setAuthorityHeaders(createReq)
	createReq.Header.Set("Idempotency-Key", "own-resolve-1")

	created := httptest.NewRecorder()
	server.mux.ServeHTTP(created, createReq)
	if created.Code != http.StatusCreated {
		t.Fatalf("create failed: %d body=%s", created.Code, created.Body.String())
	}

	resolveReq := httptest.NewRequest(http.MethodPost, "/api/authority/v1/resolve",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","authority_type":"SIGN_CONTRACT"}`)))
	setAuthorityHeaders(resolveReq)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, resolveReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve failed: %d body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Data struct {
			HasAuthority bool   `json:"has_authority"`
			Source       string `json:"source"`
		} `json:"data"`
	}
	if err := jsonDecode(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode resolve response: %v", err)
	}
	if !resp.Data.HasAuthority {
		t.Fatalf("expected owner to hold authority, body=%s", rr.Body.String())
	}
	if resp.Data.Source != "OWNER" {
		t.Fatalf("expected source OWNER, got %q", resp.Data.Source)
	}
}

func TestListGrantsFiltersByDelegate(t *testing.T) {
	server := newTestServer()
	server.authority.Store.SeedParty(testParty("org-1", "party-1"))
	server.authority.Store.SeedParty(testParty("org-1", "party-2"))

	createReq := httptest.NewRequest(http.MethodPost, "/api/authority/v1/ownerships",
		bytes.NewReader([]byte(`{"property_id":"prop-1","party_id":"party-1","role":"OWNER"}`)))
	setAuthorityHeaders(createReq)
	createReq.Header.Set("Idempotency-Key", "own-grants-1")
	created := httptest.NewRecorder()
	server.mux.ServeHTTP(created, createReq)
	if created.Code != http.StatusCreated {
		t.Fatalf("create failed: %d body=%s", created.Code, created.Body.String())
	}
	var createResp struct {
		Data struct {
			OwnershipID string `json:"ownership_id"`
		} `json:"data"`
	}
	if err := jsonDecode(created.Body.Bytes(), &createResp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	grantBody, _ := json.Marshal(map[string]any{
		"ownership_id":      createResp.Data.OwnershipID,
		"delegate_party_id": "party-2",
		"authority_type":    "COLLECT_RENT",
	})
	grantReq := httptest.NewRequest(http.MethodPost, "/api/authority/v1/grants", bytes.NewReader(grantBody))
	setAuthorityHeaders(grantReq)
	grantReq.Header.Set("Idempotency-Key", "grant-grants-1")
	granted := httptest.NewRecorder()
	server.mux.ServeHTTP(granted, grantReq)
	if granted.Code != http.StatusCreated {
		t.Fatalf("grant failed: %d body=%s", granted.Code, granted.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/authority/v1/grants?delegate_party_id=party-2", nil)
	setAuthorityHeaders(listReq)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, listReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("list failed: %d body=%s", rr.Code, rr.Body.String())
	}

	var listResp struct {
		Data []struct {
			DelegatePartyID string `json:"delegate_party_id"`
			Status          string `json:"status"`
		} `json:"data"`
	}
	if err := jsonDecode(rr.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listResp.Data) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(listResp.Data))
	}
	if listResp.Data[0].Status != "PENDING_ACCEPTANCE" {
		t.Fatalf("expected pending grant, got %q", listResp.Data[0].Status)
	}
}
