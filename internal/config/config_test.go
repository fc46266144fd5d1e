package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:           8080,
		TickIntervalMS: 15000,
		AdminSecret:    "0123456789abcdef",
		RelaySecret:    "0123456789abcdef",
		TrustProxy:     TrustProxyNone,
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := validConfig()
	c.Port = 0
	assert.Error(t, c.Validate())

	c.Port = 70000
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadTickInterval(t *testing.T) {
	c := validConfig()
	c.TickIntervalMS = 500
	assert.Error(t, c.Validate())

	c.TickIntervalMS = 70000
	assert.Error(t, c.Validate())
}

func TestValidateRejectsShortAdminSecret(t *testing.T) {
	c := validConfig()
	c.AdminSecret = "short"
	assert.Error(t, c.Validate())
}

func TestValidateRejectsShortRelaySecret(t *testing.T) {
	c := validConfig()
	c.RelaySecret = "short"
	assert.Error(t, c.Validate())
}

func TestValidateRejectsUnknownTrustProxy(t *testing.T) {
	c := validConfig()
	c.TrustProxy = TrustProxy("bogus")
	assert.Error(t, c.Validate())
}

func TestValidateRejectsMismatchedTLSPair(t *testing.T) {
	c := validConfig()
	c.TLSCert = "cert.pem"
	assert.Error(t, c.Validate())

	c.TLSKey = "key.pem"
	assert.NoError(t, c.Validate())
}

func TestSchemeReflectsTLSConfiguration(t *testing.T) {
	c := validConfig()
	assert.Equal(t, "http", c.Scheme())

	c.TLSCert, c.TLSKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", c.Scheme())
}

func TestTickIntervalConvertsMillisecondsToDuration(t *testing.T) {
	c := &Config{TickIntervalMS: 2500}
	assert.Equal(t, 2500_000_000, int(c.TickInterval()))
}
