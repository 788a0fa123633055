package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/starnotary"
	"github.com/layer-3/starnotary/adapters/ledger"
	"github.com/layer-3/starnotary/adapters/metrics"
	"github.com/layer-3/starnotary/adapters/store"
	"github.com/layer-3/starnotary/adapters/tokenizer"
	"github.com/layer-3/starnotary/adapters/verifier"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventSink struct{}

func (eventSink) PublishStarRegistered(ctx context.Context, block *core.Block) error {
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts Options) *gin.Engine {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	memStore := store.NewMemoryStore()
	tok := tokenizer.NewJWTTokenizer(signKey)

	registry := service.NewSessionRegistry(memStore, m, 0, 0)
	authVerifier := service.NewAuthenticationVerifier(registry, verifier.NewEthVerifier(), tok, m)
	stars := service.NewStarService(registry, tok, memStore, ledger.NewMemoryLedger(), eventSink{}, m, logger)

	opts.Logger = logger
	opts.Gatherer = reg
	return SetupRouter(registry, authVerifier, stars, opts)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return testWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w testWallet) sign(t *testing.T, message string) string {
	t.Helper()

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func requestSession(t *testing.T, router http.Handler, address string) starnotary.SessionResponse {
	t.Helper()

	w := do(t, router, http.MethodPost, "/requestValidation", fmt.Sprintf(`{"address":%q}`, address))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp starnotary.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func authenticate(t *testing.T, router http.Handler, wallet testWallet) starnotary.AuthenticationResponse {
	t.Helper()

	session := requestSession(t, router, wallet.address)
	body := fmt.Sprintf(`{"address":%q,"signature":%q}`, wallet.address, wallet.sign(t, session.Message))
	w := do(t, router, http.MethodPost, "/message-signature/validate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp starnotary.AuthenticationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func registerBody(address, story string) string {
	return fmt.Sprintf(`{"address":%q,"star":{"ra":"16h 29m 1.0s","dec":"68° 52' 56.9","story":%q}}`, address, story)
}

func TestRegistrationFlow(t *testing.T) {
	router := newTestRouter(t, Options{})
	wallet := newTestWallet(t)

	session := requestSession(t, router, wallet.address)
	assert.Equal(t, wallet.address, session.Address)
	assert.Equal(t, int64(300), session.ValidationWindow)
	assert.Equal(t, fmt.Sprintf("%s:%d:starRegistry", wallet.address, session.RequestTimeStamp), session.Message)

	body := fmt.Sprintf(`{"address":%q,"signature":%q}`, wallet.address, wallet.sign(t, session.Message))
	w := do(t, router, http.MethodPost, "/message-signature/validate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var auth starnotary.AuthenticationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	assert.True(t, auth.RegisterStar)
	assert.True(t, auth.Status.MessageSignature)
	assert.Equal(t, session.Message, auth.Status.Message)
	assert.LessOrEqual(t, auth.Status.ValidationWindow, int64(300))

	w = do(t, router, http.MethodPost, "/block", registerBody(wallet.address, "Found star using https://www.google.com/sky/"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var star struct {
		Hash   string `json:"hash"`
		Height uint64 `json:"height"`
		Body   struct {
			Address string `json:"address"`
			Star    struct {
				Story        string `json:"story"`
				StoryDecoded string `json:"storyDecoded"`
			} `json:"star"`
		} `json:"body"`
		PreviousBlockHash string `json:"previousBlockHash"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &star))
	assert.Equal(t, uint64(1), star.Height)
	assert.Equal(t, wallet.address, star.Body.Address)
	assert.Equal(t, "466f756e642073746172207573696e672068747470733a2f2f7777772e676f6f676c652e636f6d2f736b792f", star.Body.Star.Story)
	assert.Equal(t, "Found star using https://www.google.com/sky/", star.Body.Star.StoryDecoded)

	// read-back paths
	w = do(t, router, http.MethodGet, "/block/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), star.Hash)

	w = do(t, router, http.MethodGet, "/stars/hash:"+star.Hash, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storyDecoded":"Found star using https://www.google.com/sky/"`)

	w = do(t, router, http.MethodGet, "/stars/address:"+wallet.address, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stars []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stars))
	assert.Len(t, stars, 1)

	// the grant was single-use
	w = do(t, router, http.MethodPost, "/block", registerBody(wallet.address, "again"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenesisBlock(t *testing.T) {
	router := newTestRouter(t, Options{})

	w := do(t, router, http.MethodGet, "/block/0", "")
	require.Equal(t, http.StatusOK, w.Code)

	var block map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &block))
	assert.Equal(t, "Genesis block", block["body"])
	assert.Equal(t, float64(0), block["height"])
}

func TestInvalidSignature(t *testing.T) {
	router := newTestRouter(t, Options{})
	wallet := newTestWallet(t)
	impostor := newTestWallet(t)

	session := requestSession(t, router, wallet.address)
	body := fmt.Sprintf(`{"address":%q,"signature":%q}`, wallet.address, impostor.sign(t, session.Message))
	w := do(t, router, http.MethodPost, "/message-signature/validate", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var auth starnotary.AuthenticationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	assert.False(t, auth.RegisterStar)
	assert.False(t, auth.Status.MessageSignature)
	assert.Equal(t, session.Message, auth.Status.Message)

	w = do(t, router, http.MethodPost, "/block", registerBody(wallet.address, "nope"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNonHexAddressFailsAuthentication(t *testing.T) {
	router := newTestRouter(t, Options{})
	wallet := newTestWallet(t)
	address := "19xaiMqayaNrn3x7AjV5cU4Mk5f5prRVpL"

	session := requestSession(t, router, address)
	body := fmt.Sprintf(`{"address":%q,"signature":%q}`, address, wallet.sign(t, session.Message))
	w := do(t, router, http.MethodPost, "/message-signature/validate", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var auth starnotary.AuthenticationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	assert.False(t, auth.RegisterStar)
	assert.False(t, auth.Status.MessageSignature)
	assert.Equal(t, session.Message, auth.Status.Message)
}

func TestValidateWithoutSession(t *testing.T) {
	router := newTestRouter(t, Options{})
	wallet := newTestWallet(t)

	body := fmt.Sprintf(`{"address":%q,"signature":%q}`, wallet.address, wallet.sign(t, "whatever"))
	w := do(t, router, http.MethodPost, "/message-signature/validate", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedRequests(t *testing.T) {
	router := newTestRouter(t, Options{})

	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/requestValidation", `{"address":`},
		{http.MethodPost, "/requestValidation", `{}`},
		{http.MethodPost, "/message-signature/validate", `{"address":"0xabc"}`},
		{http.MethodPost, "/block", `{"address":"0xabc","star":{"ra":"1"}}`},
		{http.MethodGet, "/block/minus-one", ""},
		{http.MethodGet, "/stars/hash", ""},
		{http.MethodGet, "/stars/name:vega", ""},
	}
	for _, tc := range cases {
		w := do(t, router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s %s", tc.method, tc.path, tc.body)
	}
}

func TestStoryCap(t *testing.T) {
	router := newTestRouter(t, Options{MaxStoryBytes: 8})
	wallet := newTestWallet(t)
	authenticate(t, router, wallet)

	w := do(t, router, http.MethodPost, "/block", registerBody(wallet.address, "123456789"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/block", registerBody(wallet.address, "12345678"))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUnknownBlocks(t *testing.T) {
	router := newTestRouter(t, Options{})

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/block/7", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/stars/hash:deadbeef", "").Code)

	w := do(t, router, http.MethodGet, "/stars/address:0xnobody", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/requestValidation", `{"address":"a"}`).Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/requestValidation", `{"address":"b"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodPost, "/requestValidation", `{"address":"c"}`).Code)

	// reads are not limited
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, Options{})
	requestSession(t, router, "0xabc")

	w := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "starnotary_sessions_issued_total 1")
}

func TestErrorMapping(t *testing.T) {
	h := NewNotaryHandlers(nil, nil, nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := map[error]int{
		core.ErrInvalidAddress:   http.StatusBadRequest,
		core.ErrSessionNotFound:  http.StatusNotFound,
		core.ErrSignatureInvalid: http.StatusUnauthorized,
		core.ErrNotAuthenticated: http.StatusForbidden,
		core.ErrInvalidGrant:     http.StatusForbidden,
		core.ErrGrantConsumed:    http.StatusConflict,
		core.ErrBlockNotFound:    http.StatusNotFound,
		core.ErrDecode:           http.StatusInternalServerError,
		io.ErrUnexpectedEOF:      http.StatusInternalServerError,

		fmt.Errorf("wrapped: %w", core.ErrSessionExpired): http.StatusGone,
	}
	for err, status := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil))

		h.writeError(c, err, "failed")
		assert.Equal(t, status, w.Code, err.Error())
	}
}
