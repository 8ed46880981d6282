// Package sign provides HMAC request signing shared by venue connectors.
// Each connector builds its own header set; the signing scheme, HMAC-SHA256
// over timestamp+method+path+body, is common across the supported venues.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Credentials is one venue's API key pair.
type Credentials struct {
	Key    string
	Secret string
}

// Sign returns the base64 HMAC-SHA256 signature for a REST request, with the
// timestamp as a Unix-epoch decimal string. Connectors that need hex encoding
// use SignHex with the same message layout.
func (c Credentials) Sign(method, path, body string, at time.Time) (ts, sig string) {
	ts = strconv.FormatInt(at.Unix(), 10)
	return ts, base64.StdEncoding.EncodeToString(c.mac(ts, method, path, body))
}

// SignHex is Sign with hex signature encoding.
func (c Credentials) SignHex(method, path, body string, at time.Time) (ts, sig string) {
	ts = strconv.FormatInt(at.Unix(), 10)
	return ts, hex.EncodeToString(c.mac(ts, method, path, body))
}

func (c Credentials) mac(ts, method, path, body string) []byte {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(ts + method + path + body))
	return mac.Sum(nil)
}

// String returns a redacted representation suitable for logging.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{key=%s, secret=%s}", redact(c.Key), redact(c.Secret))
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
