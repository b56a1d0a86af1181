package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

// TokenSource returns the bearer token for a protected call.
type TokenSource func(ctx context.Context) (string, error)

// UploadRequest describes one receipt upload. Metadata must carry orderId;
// other keys are sent as extra form fields.
type UploadRequest struct {
	Filename string
	Content  io.Reader
	Metadata map[string]string
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewHTTPClient returns a client for the API at baseURL. A zero timeout
// means no client-side timeout; ctx deadlines still apply.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *HTTPClient) Health(ctx context.Context) error {
	var h wire.Health
	if err := c.doJSON(ctx, http.MethodGet, wire.PathHealth, nil, false, http.StatusOK, &h); err != nil {
		return err
	}
	if h.Status == "" {
		return fmt.Errorf("%w: health status missing", ErrMalformedResponse)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) (string, error) {
	var resp wire.RegisterResponse
	err := c.doJSON(ctx, http.MethodPost, wire.PathRegister, wire.Credentials{Username: username, Password: password}, false, http.StatusCreated, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: user id missing", ErrMalformedResponse)
	}
	return resp.ID, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*wire.TokenResponse, error) {
	var resp wire.TokenResponse
	err := c.doJSON(ctx, http.MethodPost, wire.PathLogin, wire.Credentials{Username: username, Password: password}, false, http.StatusOK, &resp)
	if err != nil {
		return nil, err
	}
	return validTokens(&resp)
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*wire.TokenResponse, error) {
	var resp wire.TokenResponse
	err := c.doJSON(ctx, http.MethodPost, wire.PathRefresh, wire.RefreshRequest{RefreshToken: refreshToken}, false, http.StatusOK, &resp)
	if err != nil {
		return nil, err
	}
	return validTokens(&resp)
}

func validTokens(t *wire.TokenResponse) (*wire.TokenResponse, error) {
	if t.AccessToken == "" || t.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token pair incomplete", ErrMalformedResponse)
	}
	return t, nil
}

// UploadReceipt streams req as multipart/form-data and returns the new
// receipt ID.
func (c *HTTPClient) UploadReceipt(ctx context.Context, req UploadRequest) (string, error) {
	if req.Content == nil {
		return "", fmt.Errorf("%w: receipt content is required", common.ErrorValidation)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, req))
	}()

	httpReq, err := c.newRequest(ctx, http.MethodPost, wire.PathReceipts, pr, true)
	if err != nil {
		pr.Close()
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var resp wire.UploadResponse
	if err := c.do(httpReq, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	if resp.ReceiptID == "" {
		return "", fmt.Errorf("%w: receipt id missing", ErrMalformedResponse)
	}
	return resp.ReceiptID, nil
}

func writeUploadForm(mw *multipart.Writer, req UploadRequest) error {
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, req.Metadata[k]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, wire.FieldReceipt, req.Filename))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return err
	}
	return mw.Close()
}

func (c *HTTPClient) GetMetadata(ctx context.Context, id string) (*wire.ReceiptMetadata, error) {
	path, err := receiptPath(id, "")
	if err != nil {
		return nil, err
	}

	var m wire.ReceiptMetadata
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, http.StatusOK, &m); err != nil {
		return nil, err
	}

	switch {
	case m.Filename == "":
		return nil, fmt.Errorf("%w: filename missing", ErrMalformedResponse)
	case m.UploadDate.IsZero():
		return nil, fmt.Errorf("%w: upload date missing", ErrMalformedResponse)
	case m.Length < 0:
		return nil, fmt.Errorf("%w: negative length %d", ErrMalformedResponse, m.Length)
	}
	if m.ID == "" {
		m.ID = id
	}
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	return &m, nil
}

// DownloadReceipt copies the receipt's bytes to w and returns how many were
// written. The transfer must match the announced Content-Length.
func (c *HTTPClient) DownloadReceipt(ctx context.Context, id string, w io.Writer) (int64, error) {
	path, err := receiptPath(id, wire.FileSuffix)
	if err != nil {
		return 0, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return 0, err
	}

	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errorFromResponse(resp)
	}

	want, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || want < 0 {
		return 0, fmt.Errorf("%w: Content-Length missing", ErrMalformedResponse)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if n != want {
		return n, fmt.Errorf("%w: got %d of %d bytes", ErrMalformedResponse, n, want)
	}
	return n, nil
}

func (c *HTTPClient) GetDownloadURL(ctx context.Context, id string) (*wire.DownloadLink, error) {
	path, err := receiptPath(id, wire.LinkSuffix)
	if err != nil {
		return nil, err
	}

	var l wire.DownloadLink
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, http.StatusOK, &l); err != nil {
		return nil, err
	}
	u, err := url.Parse(l.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: bad download url %q", ErrMalformedResponse, l.URL)
	}
	if l.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: link expiry missing", ErrMalformedResponse)
	}
	return &l, nil
}

func receiptPath(id, suffix string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: receipt id is required", common.ErrorValidation)
	}
	return wire.PathReceipts + "/" + url.PathEscape(id) + suffix, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, auth bool, wantStatus int, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, r, auth)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, wantStatus, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, auth bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if auth {
		if c.tokens == nil {
			return nil, ErrNotLoggedIn
		}
		token, err := c.tokens(ctx)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return req, nil
}

func (c *HTTPClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *HTTPClient) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return errorFromResponse(resp)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// errorFromResponse turns a non-success response into an error wrapping the
// matching common sentinel.
func errorFromResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return fmt.Errorf("%w: receipt is too large", common.ErrorValidation)
	}

	var e wire.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e); err != nil || e.Code == "" {
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
		}
		return fmt.Errorf("%w: unexpected status %s", ErrMalformedResponse, resp.Status)
	}

	sentinel := wire.ErrorForCode(e.Code)
	if e.Message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, e.Message)
}
