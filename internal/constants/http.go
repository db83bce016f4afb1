package constants

const (
	APIFieldRequestID = "request_id"
	APIFieldNodeID    = "node_id"
)

const (
	HeaderAccept                    = "Accept"
	HeaderAuthorization             = "Authorization"
	HeaderContentLength             = "Content-Length"
	HeaderContentType               = "Content-Type"
	HeaderContentDigest             = "Content-Digest"
	HeaderOrigin                    = "Origin"
	HeaderXRequestedWith            = "X-Requested-With"
	HeaderXRequestID                = "X-Request-ID"
	HeaderXAPIKey                   = "X-API-Key"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
)
