package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/cryptox"
	"github.com/dmitrijs2005/receiptvault/internal/logging"
	"github.com/dmitrijs2005/receiptvault/internal/server/auth"
	"github.com/dmitrijs2005/receiptvault/internal/server/models"
	"github.com/dmitrijs2005/receiptvault/internal/server/services"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeUsers struct {
	registerErr error
	loginErr    error
	refreshErr  error
	gotUser     string
	gotPass     string
}

func (f *fakeUsers) Register(_ context.Context, u, p string) (*models.User, error) {
	f.gotUser, f.gotPass = u, p
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "user-1", UserName: u}, nil
}

func (f *fakeUsers) Login(_ context.Context, u, p string) (*services.TokenPair, error) {
	f.gotUser, f.gotPass = u, p
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
}

func (f *fakeUsers) RefreshToken(_ context.Context, t string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}, nil
}

type fakeReceipts struct {
	putReq    services.PutRequest
	putCaller auth.Identity
	putErr    error

	info    *services.ReceiptInfo
	content []byte
	body    io.ReadCloser
	getErr  error

	link    *services.DownloadLink
	linkErr error
}

func (f *fakeReceipts) Put(ctx context.Context, req services.PutRequest) (string, error) {
	f.putReq = req
	f.putCaller, _ = auth.IdentityFromContext(ctx)
	if f.putErr != nil {
		return "", f.putErr
	}
	return "rid-1", nil
}

func (f *fakeReceipts) GetMetadata(_ context.Context, id string) (*services.ReceiptInfo, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.info, nil
}

func (f *fakeReceipts) GetBinary(_ context.Context, id string) (io.ReadCloser, *services.ReceiptInfo, error) {
	if f.getErr != nil {
		return nil, nil, f.getErr
	}
	if f.body != nil {
		return f.body, f.info, nil
	}
	return io.NopCloser(bytes.NewReader(f.content)), f.info, nil
}

func (f *fakeReceipts) GetDownloadURL(_ context.Context, id string) (*services.DownloadLink, error) {
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return f.link, nil
}

func newTestServer(t *testing.T, us *fakeUsers, rs *fakeReceipts, opts Options) *httptest.Server {
	t.Helper()
	if opts.MaxUploadSize == 0 {
		opts.MaxUploadSize = 1 << 20
	}
	s := NewHTTPServer(":0", logging.Nop(), us, rs, secret, opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func bearer(t *testing.T, validity time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Identity{UserID: "u1", UserName: "alice"}, []byte(secret), validity)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, method, url string, body any, authz string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeErr(t *testing.T, b []byte) wire.ErrorResponse {
	t.Helper()
	var e wire.ErrorResponse
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(wire.FieldReceipt, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func upload(t *testing.T, srv *httptest.Server, authz string, fields map[string]string, filename string, content []byte) (*http.Response, []byte) {
	t.Helper()
	body, ct := multipartBody(t, fields, filename, content)
	req, err := http.NewRequest(http.MethodPost, srv.URL+wire.PathReceipts, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", ct)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n%%EOF\n")

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeUsers{}, &fakeReceipts{}, Options{})
	resp, b := doJSON(t, http.MethodGet, srv.URL+"/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(b))

	down := newTestServer(t, &fakeUsers{}, &fakeReceipts{}, Options{Ready: func(context.Context) error { return fmt.Errorf("db down") }})
	resp, b = doJSON(t, http.MethodGet, down.URL+"/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"unavailable"}`, string(b))
}

func TestRegister(t *testing.T) {
	us := &fakeUsers{}
	srv := newTestServer(t, us, &fakeReceipts{}, Options{})

	resp, b := doJSON(t, http.MethodPost, srv.URL+wire.PathRegister, wire.Credentials{Username: "alice", Password: "pw"}, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":"user-1"}`, string(b))
	assert.Equal(t, "alice", us.gotUser)
	assert.Equal(t, "pw", us.gotPass)

	us.registerErr = fmt.Errorf("error creating user: %w", common.ErrorAlreadyExists)
	resp, b = doJSON(t, http.MethodPost, srv.URL+wire.PathRegister, wire.Credentials{Username: "alice", Password: "pw"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, wire.CodeConflict, decodeErr(t, b).Code)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+wire.PathRegister, strings.NewReader("{not json"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestLoginAndRefresh(t *testing.T) {
	us := &fakeUsers{}
	srv := newTestServer(t, us, &fakeReceipts{}, Options{})

	resp, b := doJSON(t, http.MethodPost, srv.URL+wire.PathLogin, wire.Credentials{Username: "alice", Password: "pw"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"accessToken":"acc","refreshToken":"ref"}`, string(b))

	resp, b = doJSON(t, http.MethodPost, srv.URL+wire.PathRefresh, wire.RefreshRequest{RefreshToken: "ref"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"accessToken":"acc2","refreshToken":"ref2"}`, string(b))

	resp, b = doJSON(t, http.MethodPost, srv.URL+wire.PathRefresh, wire.RefreshRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, wire.CodeValidation, decodeErr(t, b).Code)

	us.loginErr = common.ErrorUnauthorized
	resp, b = doJSON(t, http.MethodPost, srv.URL+wire.PathLogin, wire.Credentials{Username: "alice", Password: "bad"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, wire.CodeUnauthorized, decodeErr(t, b).Code)

	us.refreshErr = common.ErrRefreshTokenExpired
	resp, b = doJSON(t, http.MethodPost, srv.URL+wire.PathRefresh, wire.RefreshRequest{RefreshToken: "old"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, wire.CodeRefreshExpired, decodeErr(t, b).Code)
}

func TestReceipts_RequireBearer(t *testing.T) {
	srv := newTestServer(t, &fakeUsers{}, &fakeReceipts{}, Options{})

	tests := []struct {
		name  string
		authz string
		code  string
	}{
		{name: "missing", authz: "", code: wire.CodeUnauthorized},
		{name: "wrong scheme", authz: "Basic abc", code: wire.CodeUnauthorized},
		{name: "garbage", authz: "Bearer not.a.jwt", code: wire.CodeUnauthorized},
		{name: "expired", authz: bearer(t, -time.Minute), code: wire.CodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, b := doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/x", nil, tt.authz)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.code, decodeErr(t, b).Code)
			assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
		})
	}
}

func TestUpload(t *testing.T) {
	rs := &fakeReceipts{}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	resp, b := upload(t, srv, bearer(t, time.Minute), map[string]string{
		"orderId":       "CBC0013",
		"paymentId":     "",
		"bankName":      "ABC Bank",
		"accountNumber": "9535942775533",
		"note":          "left at the desk",
	}, "receipt.pdf", samplePDF)

	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	assert.JSONEq(t, `{"receiptId":"rid-1"}`, string(b))
	assert.Equal(t, samplePDF, rs.putReq.Content)
	assert.Equal(t, "receipt.pdf", rs.putReq.Filename)
	assert.Equal(t, "application/pdf", rs.putReq.ContentType)
	assert.Equal(t, map[string]string{
		"orderId":       "CBC0013",
		"bankName":      "ABC Bank",
		"accountNumber": "9535942775533",
		"note":          "left at the desk",
	}, rs.putReq.Metadata)
	assert.Equal(t, "alice", rs.putCaller.UserName)
}

func TestUpload_KeepsUnknownFieldsVerbatim(t *testing.T) {
	rs := &fakeReceipts{}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	resp, b := upload(t, srv, bearer(t, time.Minute), map[string]string{
		"orderId":   "CBC0013",
		"note":      "  two leading spaces ",
		"flag":      "",
		"bankName":  "   ",
		"paymentId": " P-7 ",
	}, "receipt.pdf", samplePDF)

	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	assert.Equal(t, map[string]string{
		"orderId":   "CBC0013",
		"note":      "  two leading spaces ",
		"flag":      "",
		"paymentId": " P-7 ",
	}, rs.putReq.Metadata)
}

func TestUpload_Rejections(t *testing.T) {
	rs := &fakeReceipts{}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{MaxUploadSize: 1024})
	authz := bearer(t, time.Minute)

	t.Run("not a pdf", func(t *testing.T) {
		resp, b := upload(t, srv, authz, map[string]string{"orderId": "A1"}, "r.pdf", []byte("PK\x03\x04 zip"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, wire.CodeValidation, decodeErr(t, b).Code)
	})

	t.Run("missing file", func(t *testing.T) {
		resp, b := upload(t, srv, authz, map[string]string{"orderId": "A1"}, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeErr(t, b).Message, "receipt")
	})

	t.Run("too large", func(t *testing.T) {
		big := append(bytes.Clone(samplePDF), bytes.Repeat([]byte("x"), 2048)...)
		resp, b := upload(t, srv, authz, map[string]string{"orderId": "A1"}, "r.pdf", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, wire.CodeValidation, decodeErr(t, b).Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		resp, b := doJSON(t, http.MethodPost, srv.URL+wire.PathReceipts, map[string]string{"orderId": "A1"}, authz)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, wire.CodeValidation, decodeErr(t, b).Code)
	})

	t.Run("service validation", func(t *testing.T) {
		rs.putErr = fmt.Errorf("%w: orderId is required", common.ErrorValidation)
		defer func() { rs.putErr = nil }()

		resp, b := upload(t, srv, authz, map[string]string{}, "r.pdf", samplePDF)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decodeErr(t, b)
		assert.Equal(t, wire.CodeValidation, e.Code)
		assert.Contains(t, e.Message, "orderId is required")
	})

	t.Run("storage failure hides cause", func(t *testing.T) {
		rs.putErr = fmt.Errorf("%w: write blob: dial tcp 10.0.0.7:9000", common.ErrorStorage)
		defer func() { rs.putErr = nil }()

		resp, b := upload(t, srv, authz, map[string]string{"orderId": "A1"}, "r.pdf", samplePDF)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		e := decodeErr(t, b)
		assert.Equal(t, wire.CodeStorage, e.Code)
		assert.NotContains(t, e.Message, "10.0.0.7")
	})
}

func TestGetReceipt(t *testing.T) {
	uploaded := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	rs := &fakeReceipts{info: &services.ReceiptInfo{
		ID:          "rid-1",
		Filename:    "receipt.pdf",
		ContentType: "application/pdf",
		Length:      51200,
		UploadDate:  uploaded,
		Metadata:    map[string]string{"orderId": "CBC0013"},
	}}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	resp, b := doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/rid-1", nil, bearer(t, time.Minute))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"id": "rid-1",
		"filename": "receipt.pdf",
		"contentType": "application/pdf",
		"uploadDate": "2026-10-19T08:30:00Z",
		"length": 51200,
		"metadata": {"orderId": "CBC0013"}
	}`, string(b))

	rs.getErr = common.ErrorNotFound
	resp, b = doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/missing", nil, bearer(t, time.Minute))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, wire.CodeNotFound, decodeErr(t, b).Code)
}

func TestDownloadReceipt(t *testing.T) {
	rs := &fakeReceipts{
		info:    &services.ReceiptInfo{ID: "rid-1", Filename: "receipt.pdf", ContentType: "application/pdf", Length: int64(len(samplePDF))},
		content: samplePDF,
	}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	resp, b := doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/rid-1/file", nil, bearer(t, time.Minute))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, samplePDF, b)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(len(samplePDF)), resp.ContentLength)
	assert.Equal(t, `attachment; filename=receipt.pdf`, resp.Header.Get("Content-Disposition"))

	rs.getErr = fmt.Errorf("%w: read blob: blob missing", common.ErrorStorage)
	resp, b = doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/rid-1/file", nil, bearer(t, time.Minute))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, wire.CodeStorage, decodeErr(t, b).Code)
}

func TestDownloadReceipt_CorruptedBlob(t *testing.T) {
	tampered := bytes.Clone(samplePDF)
	tampered[len(tampered)/2] ^= 0xff

	rs := &fakeReceipts{
		info: &services.ReceiptInfo{ID: "rid-1", Filename: "receipt.pdf", ContentType: "application/pdf", Length: int64(len(samplePDF))},
		body: cryptox.NewVerifyingReader(io.NopCloser(bytes.NewReader(tampered)), int64(len(samplePDF)), cryptox.SHA256Hex(samplePDF)),
	}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	c := client.NewHTTPClient(srv.URL, time.Second, func(context.Context) (string, error) {
		return strings.TrimPrefix(bearer(t, time.Minute), "Bearer "), nil
	})

	var got bytes.Buffer
	n, err := c.DownloadReceipt(context.Background(), "rid-1", &got)
	assert.ErrorIs(t, err, common.ErrorStorage)
	assert.Zero(t, n)
	assert.Zero(t, got.Len())
}

func TestDownloadReceipt_ShortBlob(t *testing.T) {
	rs := &fakeReceipts{
		info:    &services.ReceiptInfo{ID: "rid-1", Filename: "receipt.pdf", ContentType: "application/pdf", Length: int64(len(samplePDF)) + 10},
		content: samplePDF,
	}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	resp, b := doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/rid-1/file", nil, bearer(t, time.Minute))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, wire.CodeStorage, decodeErr(t, b).Code)
}

func TestReceiptLink(t *testing.T) {
	exp := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rs := &fakeReceipts{link: &services.DownloadLink{URL: "https://s3/x?sig", ExpiresAt: exp}}
	srv := newTestServer(t, &fakeUsers{}, rs, Options{})

	resp, b := doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/rid-1/link", nil, bearer(t, time.Minute))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"url":"https://s3/x?sig","expiresAt":"2026-10-19T09:00:00Z"}`, string(b))

	rs.linkErr = common.ErrorUnsupported
	resp, b = doJSON(t, http.MethodGet, srv.URL+wire.PathReceipts+"/rid-1/link", nil, bearer(t, time.Minute))
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, wire.CodeUnsupported, decodeErr(t, b).Code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &fakeUsers{}, &fakeReceipts{}, Options{})

	resp, b := doJSON(t, http.MethodGet, srv.URL+"/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, wire.CodeNotFound, decodeErr(t, b).Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewHTTPServer("", logging.Nop(), &fakeUsers{}, &fakeReceipts{}, secret, Options{ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
