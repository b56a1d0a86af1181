// Package wire defines the JSON and multipart contract shared by the HTTP
// server and its client.
package wire

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/common"
)

const (
	PathRegister   = "/api/auth/register"
	PathLogin      = "/api/auth/login"
	PathRefresh    = "/api/auth/refresh"
	PathReceipts   = "/api/receipts"
	PathHealth     = "/health"
	FileSuffix     = "/file"
	LinkSuffix     = "/link"
	FieldReceipt   = "receipt"
	FieldOrderID   = common.MetaOrderID
	FieldPaymentID = common.MetaPaymentID
	FieldBankName  = common.MetaBankName
	FieldAccountNo = common.MetaAccountNumber
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID string `json:"id"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UploadResponse struct {
	ReceiptID string `json:"receiptId"`
}

// ReceiptMetadata is the body of GET /api/receipts/{id}.
type ReceiptMetadata struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType,omitempty"`
	UploadDate  time.Time         `json:"uploadDate"`
	Length      int64             `json:"length"`
	Metadata    map[string]string `json:"metadata"`
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Health struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeValidation     = "validation_failure"
	CodeUnauthorized   = "unauthorized"
	CodeTokenExpired   = "token_expired"
	CodeRefreshExpired = "refresh_token_expired"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeStorage        = "storage_failure"
	CodeUnsupported    = "unsupported"
	CodeInternal       = "internal"
)

var codes = []struct {
	err    error
	code   string
	status int
}{
	{common.ErrorValidation, CodeValidation, http.StatusBadRequest},
	{common.ErrTokenExpired, CodeTokenExpired, http.StatusUnauthorized},
	{common.ErrRefreshTokenExpired, CodeRefreshExpired, http.StatusUnauthorized},
	{common.ErrorUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
	{common.ErrInvalidToken, CodeUnauthorized, http.StatusUnauthorized},
	{common.ErrorNotFound, CodeNotFound, http.StatusNotFound},
	{common.ErrorAlreadyExists, CodeConflict, http.StatusConflict},
	{common.ErrorStorage, CodeStorage, http.StatusServiceUnavailable},
	{common.ErrorUnsupported, CodeUnsupported, http.StatusNotImplemented},
	{common.ErrorInternal, CodeInternal, http.StatusInternalServerError},
}

// Classify maps an error to its wire code and HTTP status. Unknown errors
// are internal.
func Classify(err error) (code string, status int) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// ErrorForCode maps a wire code back to its sentinel. Unknown codes map to
// common.ErrorInternal.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return common.ErrorInternal
}
