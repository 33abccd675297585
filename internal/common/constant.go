package common

// AuthorizationHeaderName carries the optional bearer token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// DefaultMimeType is stored when an upload does not declare a content type.
const DefaultMimeType = "application/octet-stream"
