package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "golang.org/x/exp/rand"
	"strings"
	"time"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

func init() {
	mrand.Seed(uint64(time.Now().UnixNano()))
}

// RandomInt generates a random integer between min and max
func RandomInt(min, max int32) int32 {
	return min + mrand.Int31n(max-min+1)
}

// RandomString generates a random string of length n
func RandomString(n int) string {
	var sb strings.Builder
	k := len(alphabet)

	for i := 0; i < n; i++ {
		c := alphabet[mrand.Intn(k)]
		sb.WriteByte(c)
	}

	return sb.String()
}

// RandomSurfaceName generates a surface name like eur-capvol-xk
func RandomSurfaceName() string {
	ccy := []string{"usd", "eur", "gbp", "jpy", "chf"}
	return fmt.Sprintf("%s-capvol-%s", ccy[mrand.Intn(len(ccy))], RandomString(2))
}

// RandomVol generates a plausible quoted volatility
func RandomVol() float64 {
	return 0.1 + 0.3*mrand.Float64()
}

// RandomExpiry generates an expiry year fraction between 3M and 10Y
func RandomExpiry() float64 {
	return 0.25 + 9.75*mrand.Float64()
}

// RandomEmail generates a random email
func RandomEmail() string {
	return fmt.Sprintf("%s@email.com", RandomString(6))
}

// RandomDate generates a date string in 2006-01-02 format
func RandomDate() string {
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, mrand.Intn(2000))
	return day.Format("2006-01-02")
}

// GenerateToken returns an 8 character key prefix and a random secret. The
// full API key presented by clients is prefix.secret.
func GenerateToken() (string, string, error) {
	prefix := RandomString(8)
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	return prefix, secret, nil
}
