package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/duration"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
)

// chainConf configures the connection to the ethereum node.
//
// YAML example:
//
//	chain:
//	  rpc_url: http://127.0.0.1:8545
//	  request_timeout: 10s
//	  max_rps: 20
//	  deployment_file: ignition/deployments/chain-31337/deployed_addresses.json
//	  contracts:
//	    identity: 0x5FbDB2315678afecb367f032d93F642f64180aa3
type chainConf struct {
	RPCURL         string                  `yaml:"rpc_url"`
	RequestTimeout duration.DurationOption `yaml:"request_timeout"`
	// MaxRPS limits the rpc calls per second; 0 disables the limit
	MaxRPS float64 `yaml:"max_rps"`
	// DeploymentFile is an ignition deployed_addresses.json; explicitly
	// configured contract addresses take precedence
	DeploymentFile string        `yaml:"deployment_file"`
	Contracts      contractsConf `yaml:"contracts"`

	addresses chain.Addresses
}

type contractsConf struct {
	Identity string `yaml:"identity"`
	Consent  string `yaml:"consent"`
	Token    string `yaml:"token"`
}

var defaultChainConf = chainConf{
	RPCURL:         "http://127.0.0.1:8545",
	RequestTimeout: duration.DurationOption(10 * time.Second),
}

func (c *chainConf) validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc_url must be set")
	}
	if c.MaxRPS < 0 {
		return errors.New("max_rps must not be negative")
	}
	if c.DeploymentFile != "" {
		if !fileutils.FileExists(c.DeploymentFile) {
			return errors.Errorf("deployment file '%s' does not exist", c.DeploymentFile)
		}
		deployed, err := chain.LoadDeploymentAddresses(c.DeploymentFile)
		if err != nil {
			return err
		}
		c.addresses = deployed
		log.WithField("file", c.DeploymentFile).Debug("Loaded contract addresses from deployment file")
	}
	for name, field := range map[string]struct {
		value  string
		target *common.Address
	}{
		"identity": {c.Contracts.Identity, &c.addresses.Identity},
		"consent":  {c.Contracts.Consent, &c.addresses.Consent},
		"token":    {c.Contracts.Token, &c.addresses.Token},
	} {
		if field.value == "" {
			continue
		}
		addr, err := chain.NormalizeAddress(field.value)
		if err != nil {
			return errors.Wrapf(err, "contracts.%s", name)
		}
		*field.target = addr
	}
	if missing := c.addresses.Missing(); len(missing) > 0 {
		return errors.Errorf("missing contract addresses: %v", missing)
	}
	return nil
}

// ClientConfig returns the chain.Config for a validated chainConf
func (c chainConf) ClientConfig() chain.Config {
	return chain.Config{
		RPCURL:         c.RPCURL,
		RequestTimeout: c.RequestTimeout.Duration(),
		MaxRPS:         c.MaxRPS,
		Contracts:      c.addresses,
	}
}
