package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// Metadata keys understood by the upload flow. Any other key is stored as is.
const (
	MetaOrderID       = "orderId"
	MetaPaymentID     = "paymentId"
	MetaBankName      = "bankName"
	MetaAccountNumber = "accountNumber"
	MetaUploadedBy    = "uploadedBy"
)
