package cookie

import (
	"net/http"
	"time"
)

const (
	AccessToken  = "access_token"
	RefreshToken = "refresh_token"
)

type Settings struct {
	Secure     bool
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// * SetTokens выставляет httpOnly cookie для пары токенов. max-age совпадает со сроком жизни токена.
func SetTokens(w http.ResponseWriter, s Settings, access, refresh string) {
	http.SetCookie(w, build(s, AccessToken, access, s.AccessTTL))
	http.SetCookie(w, build(s, RefreshToken, refresh, s.RefreshTTL))
}

func Clear(w http.ResponseWriter, s Settings) {
	for _, name := range []string{AccessToken, RefreshToken} {
		c := build(s, name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func build(s Settings, name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
