package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	educonsent "github.com/WhitehatD/Student-Identity-Consent"
)

func defaultServerConf() educonsent.ServerConf {
	return educonsent.ServerConf{
		Port:        4000,
		PathPrefix:  educonsent.DefaultPathPrefix,
		CORSOrigins: append([]string(nil), educonsent.DefaultCORSOrigins...),
	}
}

func validateServerConf(c *educonsent.ServerConf) error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.PathPrefix == "" {
		c.PathPrefix = educonsent.DefaultPathPrefix
	}
	if !strings.HasPrefix(c.PathPrefix, "/") {
		c.PathPrefix = "/" + c.PathPrefix
	}
	c.PathPrefix = strings.TrimSuffix(c.PathPrefix, "/")
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return errors.New("cors_origins must list explicit origins, credentials are allowed")
		}
	}
	if c.TLS.Enabled {
		if c.TLS.Cert == "" || c.TLS.Key == "" {
			return errors.New("tls is enabled but cert or key is not set")
		}
		for _, f := range []string{c.TLS.Cert, c.TLS.Key} {
			if !fileutils.FileExists(f) {
				return errors.Errorf("tls file '%s' does not exist", f)
			}
		}
	}
	return nil
}
