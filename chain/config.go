package chain

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Keys used by the hardhat ignition module in deployed_addresses.json
const (
	deploymentKeyIdentity = "EduSystem#EduIdentity"
	deploymentKeyConsent  = "EduSystem#EduConsent"
	deploymentKeyToken    = "EduSystem#EduToken"
)

// Addresses holds the addresses of the deployed contracts
type Addresses struct {
	Identity common.Address `json:"eduIdentity"`
	Consent  common.Address `json:"eduConsent"`
	Token    common.Address `json:"eduToken"`
}

// Config is the configuration of a Client
type Config struct {
	RPCURL         string
	RequestTimeout time.Duration
	MaxRPS         float64
	Contracts      Addresses
}

// LoadDeploymentAddresses reads the contract addresses from an ignition
// deployed_addresses.json file
func LoadDeploymentAddresses(path string) (Addresses, error) {
	var addrs Addresses
	data, err := os.ReadFile(path)
	if err != nil {
		return addrs, errors.Wrap(err, "could not read deployment file")
	}
	var deployed map[string]string
	if err = json.Unmarshal(data, &deployed); err != nil {
		return addrs, errors.Wrap(err, "could not parse deployment file")
	}
	for key, target := range map[string]*common.Address{
		deploymentKeyIdentity: &addrs.Identity,
		deploymentKeyConsent:  &addrs.Consent,
		deploymentKeyToken:    &addrs.Token,
	} {
		v, ok := deployed[key]
		if !ok {
			return addrs, errors.Errorf("deployment file does not contain '%s'", key)
		}
		a, err := NormalizeAddress(v)
		if err != nil {
			return addrs, errors.Wrapf(err, "deployment file entry '%s'", key)
		}
		*target = a
	}
	return addrs, nil
}

// Missing returns the names of contracts without an address
func (a Addresses) Missing() (missing []string) {
	zero := common.Address{}
	if a.Identity == zero {
		missing = append(missing, "identity")
	}
	if a.Consent == zero {
		missing = append(missing, "consent")
	}
	if a.Token == zero {
		missing = append(missing, "token")
	}
	return
}
