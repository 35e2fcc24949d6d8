//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/usecase/token"
)

var (
	baseURL    string
	apiToken   string
	tokenCodec *token.Codec
	httpClient *http.Client
)

// TestMain sets up the test environment
func TestMain(m *testing.M) {
	baseURL = getenv("PECU_BASE_URL", "http://localhost:8080")
	apiToken = getenv("PECU_API_TOKEN", "dev-token")

	// The codec shares the server's secret so tests can mint confirmation
	// links the way the notifier would deliver them.
	secret := getenv("PECU_TOKEN_SECRET", "dev-secret")
	var err error
	tokenCodec, err = token.NewCodec(secret, time.Hour)
	if err != nil {
		panic(fmt.Sprintf("Failed to build token codec: %v", err))
	}

	httpClient = &http.Client{
		Timeout: 10 * time.Second,
		// Redirects from /verify are asserted, not followed
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	code := m.Run()
	os.Exit(code)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiToken)

	res, err := httpClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, raw
}

type contractView struct {
	ContractID    string `json:"contractId"`
	NegotiationID string `json:"negotiationId"`
	Status        string `json:"status"`
	Step          int    `json:"step"`
	Acceptances   struct {
		Buyer  struct{ Done bool } `json:"buyer"`
		Seller struct{ Done bool } `json:"seller"`
	} `json:"acceptances"`
}

func createContract(t *testing.T, negotiationID string) contractView {
	t.Helper()
	res, raw := doJSON(t, http.MethodPost, "/api/negotiations", map[string]string{
		"negotiationId": negotiationID,
		"buyerId":       "e2e-buyer",
		"sellerId":      "e2e-seller",
		"assetId":       "e2e-asset-1",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))
	var view contractView
	require.NoError(t, json.Unmarshal(raw, &view))
	return view
}

func clickVerifyLink(t *testing.T, contractID string, role domain.PartyRole) *http.Response {
	t.Helper()
	id, err := uuid.Parse(contractID)
	require.NoError(t, err)
	signed, err := tokenCodec.Sign(id, role)
	require.NoError(t, err)

	res, err := httpClient.Get(baseURL + "/verify?token=" + signed)
	require.NoError(t, err)
	res.Body.Close()
	return res
}

func TestHealthcheck(t *testing.T) {
	res, err := httpClient.Get(baseURL + "/healthcheck")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAPIRequiresToken(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/negotiations", bytes.NewBufferString("{}"))
	require.NoError(t, err)
	res, err := httpClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestFullNegotiationLifecycle(t *testing.T) {
	negotiationID := "e2e_" + uuid.NewString()

	// First contact creates the contract at step 0
	created := createContract(t, negotiationID)
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, 0, created.Step)

	// A repeat create returns the same contract
	again := createContract(t, negotiationID)
	assert.Equal(t, created.ContractID, again.ContractID)

	// Premature finalize is gated
	res, raw := doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/finalize", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, string(raw))

	// Both parties accept; the second acceptance freezes
	res, raw = doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/accept", map[string]string{"role": "BUYER"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))
	res, raw = doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/accept", map[string]string{"role": "SELLER"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))
	var frozen contractView
	require.NoError(t, json.Unmarshal(raw, &frozen))
	assert.Equal(t, "FROZEN", frozen.Status)
	assert.Equal(t, 2, frozen.Step)

	// Confirmation links advance to VALIDATED
	verifyRes := clickVerifyLink(t, created.ContractID, domain.RoleBuyer)
	assert.Equal(t, http.StatusFound, verifyRes.StatusCode)
	verifyRes = clickVerifyLink(t, created.ContractID, domain.RoleSeller)
	assert.Equal(t, http.StatusFound, verifyRes.StatusCode)

	res, raw = doJSON(t, http.MethodGet, "/api/negotiations/"+negotiationID+"/status", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))
	var status struct {
		Status string `json:"status"`
		Step   int    `json:"step"`
	}
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, "VALIDATED", status.Status)
	assert.Equal(t, 3, status.Step)

	// Finalize completes, and a repeat finalize is a harmless no-op
	res, raw = doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/finalize", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))
	var completed contractView
	require.NoError(t, json.Unmarshal(raw, &completed))
	assert.Equal(t, "COMPLETED", completed.Status)
	assert.Equal(t, 4, completed.Step)

	res, raw = doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/finalize", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode, string(raw))
}

func TestAcceptanceIsIdempotentPerParty(t *testing.T) {
	negotiationID := "e2e_" + uuid.NewString()
	createContract(t, negotiationID)

	for i := 0; i < 3; i++ {
		res, raw := doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/accept", map[string]string{"role": "BUYER"})
		require.Equal(t, http.StatusOK, res.StatusCode, string(raw))
		var view contractView
		require.NoError(t, json.Unmarshal(raw, &view))
		assert.Equal(t, "PENDING", view.Status)
		assert.True(t, view.Acceptances.Buyer.Done)
		assert.False(t, view.Acceptances.Seller.Done)
	}
}

func TestCancelledNegotiationRejectsTransitions(t *testing.T) {
	negotiationID := "e2e_" + uuid.NewString()
	createContract(t, negotiationID)

	res, raw := doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/cancel", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))

	res, raw = doJSON(t, http.MethodPost, "/api/negotiations/"+negotiationID+"/accept", map[string]string{"role": "BUYER"})
	assert.Equal(t, http.StatusConflict, res.StatusCode, string(raw))
}

func TestGarbageVerificationTokenRedirectsToFailure(t *testing.T) {
	res, err := httpClient.Get(baseURL + "/verify?token=garbage")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusFound, res.StatusCode)
}
