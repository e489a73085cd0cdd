package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehoster/config"
	"imagehoster/di"
	"imagehoster/domain"
	"imagehoster/driver/blobstore"
	"imagehoster/port/fetch_port"
	"imagehoster/port/processing_port"
	"imagehoster/usecase/profile_usecase"
	"imagehoster/usecase/proxy_usecase"
	"imagehoster/usecase/serve_usecase"
	"imagehoster/usecase/upload_usecase"
	"imagehoster/utils/logger"
	"imagehoster/utils/signature"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error", "text")
	os.Exit(m.Run())
}

type stubFetcher struct {
	result *fetch_port.FetchResult
	err    error
}

func (s *stubFetcher) Fetch(ctx context.Context, urlString, urlParams, defaultURL string, opts fetch_port.FetchOptions) (*fetch_port.FetchResult, error) {
	return s.result, s.err
}

type stubProcessor struct {
	result *processing_port.ProcessResult
	err    error
}

func (s *stubProcessor) Process(ctx context.Context, req processing_port.ProcessRequest) (*processing_port.ProcessResult, error) {
	return s.result, s.err
}

type stubAccounts struct {
	accounts map[string]*domain.Account
	profiles map[string]*domain.Profile
}

func (s *stubAccounts) GetAccount(ctx context.Context, name string) (*domain.Account, error) {
	return s.accounts[name], nil
}

func (s *stubAccounts) GetProfile(ctx context.Context, name string) (*domain.Profile, error) {
	return s.profiles[name], nil
}

type env struct {
	cfg         *config.Config
	uploadStore *blobstore.MemoryStore
	proxyStore  *blobstore.MemoryStore
	accounts    *stubAccounts
	fetcher     *stubFetcher
	processor   *stubProcessor
	userKey     *secp256k1.PrivateKey
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newTestServer(t *testing.T) (*echo.Echo, *env) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Service.URL = "https://images.example.com"
	cfg.Service.DefaultAvatar = "https://images.example.com/defaults/avatar.png"
	cfg.Service.DefaultCover = "https://images.example.com/defaults/cover.png"
	cfg.Service.MaxImageSize = 1 << 20

	userKey := secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{1}, 32))
	e := &env{
		cfg:         cfg,
		uploadStore: blobstore.NewMemoryStore(),
		proxyStore:  blobstore.NewMemoryStore(),
		accounts: &stubAccounts{
			accounts: map[string]*domain.Account{
				"alice": {
					Name: "alice",
					Posting: domain.Authority{
						WeightThreshold: 1,
						KeyAuths: []domain.KeyAuth{
							{PublicKey: signature.FormatPublicKey(userKey.PubKey()), Weight: 1},
						},
					},
				},
			},
			profiles: map[string]*domain.Profile{
				"alice": {
					Name: "alice",
					Metadata: domain.ProfileMetadata{
						Profile: domain.ProfileFields{
							ProfileImage: "https://example.com/me.png",
							CoverImage:   "https://example.com/cover.jpg",
						},
					},
				},
			},
		},
		fetcher:   &stubFetcher{result: &fetch_port.FetchResult{Data: pngBytes(t), SourceURL: "https://example.com/cat.png"}},
		processor: &stubProcessor{result: &processing_port.ProcessResult{Data: []byte("transformed"), ContentType: "image/webp"}},
		userKey:   userKey,
	}

	serviceURL, err := url.Parse(cfg.Service.URL)
	require.NoError(t, err)

	container := &di.ApplicationComponents{
		UploadStore: e.uploadStore,
		ProxyStore:  e.proxyStore,
		ProxyUsecase: proxy_usecase.NewProxyUsecase(
			e.proxyStore, e.fetcher, e.processor, nil, nil,
			cfg.Service.DefaultAvatar, cfg.Service.MaxImageSize),
		UploadUsecase: upload_usecase.NewUploadUsecase(
			e.uploadStore, e.accounts, nil, nil, serviceURL, "hivesigner", "", 0),
		ServeUsecase:   serve_usecase.NewServeUsecase(e.uploadStore),
		ProfileUsecase: profile_usecase.NewProfileUsecase(e.accounts, serviceURL, cfg.Service.DefaultAvatar, cfg.Service.DefaultCover),
	}

	server := echo.New()
	RegisterRoutes(server, container, cfg)
	return server, e
}

func do(server *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func errorName(t *testing.T, body []byte) string {
	t.Helper()
	var parsed struct {
		Error struct {
			Name string `json:"name"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	return parsed.Error.Name
}

func TestHealthcheck(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/", "/healthcheck", "/.well-known/healthcheck.json"} {
		rec := do(server, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.OK)
		assert.Equal(t, Version, body.Version)
	}
}

func TestProxyImage(t *testing.T) {
	server, _ := newTestServer(t)
	token := domain.Base58Enc("https://example.com/cat.png")

	rec := do(server, httptest.NewRequest(http.MethodGet, "/p/"+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "transformed", rec.Body.String())
	assert.Equal(t, "image/webp", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, proxy_usecase.CacheControlNormal, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Accept", rec.Header().Get("Vary"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestProxyImageConditionalRequest(t *testing.T) {
	server, _ := newTestServer(t)
	token := domain.Base58Enc("https://example.com/cat.png")

	rec := do(server, httptest.NewRequest(http.MethodGet, "/p/"+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/p/"+token, nil)
	req.Header.Set("If-None-Match", etag)
	rec = do(server, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestProxyImageRefetchIgnoresConditional(t *testing.T) {
	server, _ := newTestServer(t)
	token := domain.Base58Enc("https://example.com/cat.png")

	rec := do(server, httptest.NewRequest(http.MethodGet, "/p/"+token, nil))
	etag := rec.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/p/"+token+"?refetch=1", nil)
	req.Header.Set("If-None-Match", etag)
	rec = do(server, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, proxy_usecase.CacheControlBypass, rec.Header().Get("Cache-Control"))
}

func TestProxyImageSecondRequestServedFromStore(t *testing.T) {
	server, e := newTestServer(t)
	token := domain.Base58Enc("https://example.com/cat.png")

	do(server, httptest.NewRequest(http.MethodGet, "/p/"+token, nil))

	// Make any further upstream work visible as a failure.
	e.fetcher.result = nil
	e.fetcher.err = domain.NewError(domain.KindInternalError)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/p/"+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "transformed", rec.Body.String())
	assert.Equal(t, proxy_usecase.CacheControlImmutable, rec.Header().Get("Cache-Control"))
}

func TestProxyImageInvalidParam(t *testing.T) {
	server, _ := newTestServer(t)
	token := domain.Base58Enc("https://example.com/cat.png")

	rec := do(server, httptest.NewRequest(http.MethodGet, "/p/"+token+"?width=banana", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_param", errorName(t, rec.Body.Bytes()))
}

func TestLegacyDimensionRedirect(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/640x480/https://example.com/a.png", nil))
	require.Equal(t, http.StatusMovedPermanently, rec.Code)

	want := "/p/" + domain.Base58Enc("https://example.com/a.png") + ".png?format=match&mode=fit&width=640&height=480"
	assert.Equal(t, want, rec.Header().Get("Location"))
}

func TestLegacyRedirectMissingURL(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/0x0/", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_param", errorName(t, rec.Body.Bytes()))
}

func TestWebPRedirect(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/webp/DQmTest/cat.png?width=100", nil))
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/DQmTest/cat.png?width=100", rec.Header().Get("Location"))
}

func TestServeUploadByHash(t *testing.T) {
	server, e := newTestServer(t)
	data := pngBytes(t)
	key := domain.UploadOrigKey(data)
	require.NoError(t, e.uploadStore.Write(context.Background(), key, data))

	rec := do(server, httptest.NewRequest(http.MethodGet, "/"+key+"/cat.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, serve_usecase.CacheControlImmutable, rec.Header().Get("Cache-Control"))

	// The filename segment is decorative.
	rec = do(server, httptest.NewRequest(http.MethodGet, "/"+key, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAvatarEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/u/alice/avatar", nil)
	req.Header.Set(echo.HeaderAccept, "image/webp,image/*")
	rec := do(server, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "transformed", rec.Body.String())
}

func TestAvatarSizeAlias(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/u/alice/avatar/large", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(server, httptest.NewRequest(http.MethodGet, "/u/alice/avatar/banana", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_param", errorName(t, rec.Body.Bytes()))
}

func TestAvatarUnknownAccount(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/u/nonexistent/avatar", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_such_account", errorName(t, rec.Body.Bytes()))
}

func TestCoverEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/u/alice/cover", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "transformed", rec.Body.String())
}

func multipartBody(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	server, e := newTestServer(t)
	data := pngBytes(t)
	sig := signature.Sign(e.userKey, signature.UploadChallengeDigest(data))

	body, contentType := multipartBody(t, data)
	req := httptest.NewRequest(http.MethodPost, "/alice/"+sig, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := do(server, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res upload_usecase.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	key := domain.UploadOrigKey(data)
	assert.Equal(t, "https://images.example.com/"+key+"/cat.png", res.URL)

	stored, err := e.uploadStore.ReadAll(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestUploadLengthRequired(t *testing.T) {
	server, _ := newTestServer(t)

	body, contentType := multipartBody(t, pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/alice/sig", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.ContentLength = -1
	rec := do(server, req)

	require.Equal(t, http.StatusLengthRequired, rec.Code)
	assert.Equal(t, "length_required", errorName(t, rec.Body.Bytes()))
}

func TestUploadPayloadTooLarge(t *testing.T) {
	server, e := newTestServer(t)
	e.cfg.Service.MaxImageSize = 10

	body, contentType := multipartBody(t, pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/alice/sig", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := do(server, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", errorName(t, rec.Body.Bytes()))
}

func TestUploadFileMissing(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/alice/sig", bytes.NewReader([]byte("not multipart")))
	req.Header.Set(echo.HeaderContentType, "text/plain")
	rec := do(server, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file_missing", errorName(t, rec.Body.Bytes()))
}

func TestUploadBadSignature(t *testing.T) {
	server, _ := newTestServer(t)

	body, contentType := multipartBody(t, pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/alice/deadbeef", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := do(server, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_signature", errorName(t, rec.Body.Bytes()))
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(server, httptest.NewRequest(http.MethodDelete, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "invalid_method", errorName(t, rec.Body.Bytes()))
}

func TestNegotiateFormat(t *testing.T) {
	tests := []struct {
		name      string
		requested domain.OutputFormat
		accept    string
		want      domain.OutputFormat
	}{
		{name: "avif preferred", requested: domain.FormatMatch, accept: "image/avif,image/webp,*/*", want: domain.FormatAVIF},
		{name: "webp fallback", requested: domain.FormatMatch, accept: "image/webp,*/*", want: domain.FormatWEBP},
		{name: "no modern formats", requested: domain.FormatMatch, accept: "image/png,*/*", want: domain.FormatMatch},
		{name: "case insensitive", requested: domain.FormatMatch, accept: "IMAGE/WEBP", want: domain.FormatWEBP},
		{name: "explicit never overridden", requested: domain.FormatJPEG, accept: "image/avif", want: domain.FormatJPEG},
		{name: "empty accept", requested: domain.FormatMatch, accept: "", want: domain.FormatMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, negotiateFormat(tt.requested, tt.accept))
		})
	}
}

func TestNegotiateWebP(t *testing.T) {
	assert.Equal(t, domain.FormatWEBP, negotiateWebP(domain.FormatMatch, "image/avif,image/webp"))
	assert.Equal(t, domain.FormatMatch, negotiateWebP(domain.FormatMatch, "image/avif"))
	assert.Equal(t, domain.FormatPNG, negotiateWebP(domain.FormatPNG, "image/webp"))
}

func TestParseAvatarSize(t *testing.T) {
	size, err := parseAvatarSize("")
	require.NoError(t, err)
	assert.Equal(t, defaultAvatarSize, size)

	size, err = parseAvatarSize("small")
	require.NoError(t, err)
	assert.Equal(t, 64, size)

	size, err = parseAvatarSize("256")
	require.NoError(t, err)
	assert.Equal(t, 256, size)

	_, err = parseAvatarSize("-1")
	assert.Error(t, err)
}

func TestIfNoneMatchHas(t *testing.T) {
	assert.True(t, ifNoneMatchHas(`W/"abc"`, `W/"abc"`))
	assert.True(t, ifNoneMatchHas(`W/"x", W/"abc"`, `W/"abc"`))
	assert.True(t, ifNoneMatchHas("*", `W/"abc"`))
	assert.False(t, ifNoneMatchHas(`W/"other"`, `W/"abc"`))
	assert.False(t, ifNoneMatchHas("", `W/"abc"`))
}
