package educonsent

import (
	"io"
)

// ServerConf configures the http server
type ServerConf struct {
	IPListen          string   `yaml:"ip_listen"`
	Port              int      `yaml:"port"`
	TLS               tlsConf  `yaml:"tls"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
	ForwardedIPHeader string   `yaml:"forwarded_ip_header"`
	// PathPrefix is the prefix of all consent api routes
	PathPrefix  string   `yaml:"path_prefix"`
	CORSOrigins []string `yaml:"cors_origins"`
	// ExposeErrors returns the message of unexpected errors to clients
	ExposeErrors bool `yaml:"expose_errors"`

	AccessLog io.Writer `yaml:"-"`
}

type tlsConf struct {
	Enabled      bool   `yaml:"enabled"`
	RedirectHTTP bool   `yaml:"redirect_http"`
	Cert         string `yaml:"cert"`
	Key          string `yaml:"key"`
}
