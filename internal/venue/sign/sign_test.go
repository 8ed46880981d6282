package sign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var creds = Credentials{Key: "api-key-1234", Secret: "top-secret"}

func TestSignKnownVectors(t *testing.T) {
	at := time.Unix(1700000000, 0)

	ts, sig := creds.Sign("GET", "/v1/orders", "", at)
	assert.Equal(t, "1700000000", ts)
	assert.Equal(t, "AAnQdcYh2ZHsvCoUBusmtz5ilC7LJ80f2CWItLSEz3c=", sig)

	ts, sig = creds.SignHex("GET", "/v1/orders", "", at)
	assert.Equal(t, "1700000000", ts)
	assert.Equal(t, "0009d075c621d991ecbc2a1406eb26b73e62942ecb27cd1fd82588b4b484cf77", sig)

	_, sig = creds.Sign("POST", "/v1/orders", `{"size":1}`, at)
	assert.Equal(t, "PfgBanIA5d8CEjXixR3CRXvFCwGpqOMZpWOEOh/tlfs=", sig)
}

func TestSignBodyChangesSignature(t *testing.T) {
	at := time.Unix(1700000000, 0)
	_, a := creds.Sign("POST", "/v1/orders", `{"size":1}`, at)
	_, b := creds.Sign("POST", "/v1/orders", `{"size":2}`, at)
	assert.NotEqual(t, a, b)
}

func TestStringRedactsSecret(t *testing.T) {
	s := creds.String()
	assert.NotContains(t, s, "top-secret")
	assert.Contains(t, s, "api-****")
	assert.Contains(t, s, "top-****")
}
