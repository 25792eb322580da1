package common

// AuthHeaderName is the HTTP header carrying the API access token.
const AuthHeaderName = "Authorization"

// AuthScheme is the expected prefix of the Authorization header value.
const AuthScheme = "Bearer"
