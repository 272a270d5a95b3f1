// Package cookie reads and writes HTTP cookies with shared attributes.
//
// Plain cookies are written as is. With a secret of at least 32 bytes,
// SetSigned appends an HMAC-SHA256 signature and GetSigned rejects values
// that were changed on the client:
//
//	m := cookie.New(cookie.WithSecret(secret), cookie.WithSecure(true))
//	if err := m.SetSigned(w, "__sid", token, 3600); err != nil {
//	    return err
//	}
//	token, err := m.GetSigned(r, "__sid")
//
// The session manager signs its token cookie this way when a session
// secret is configured.
package cookie
