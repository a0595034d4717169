package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/WhitehatD/Student-Identity-Consent/storage"
)

// applyEnv overrides configuration values with the environment variables
// used by the docker deployment
func applyEnv(c *Config) error {
	setString := func(name string, target *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}
	setInt := func(name string, target *int) error {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid value for %s", name)
		}
		*target = i
		return nil
	}

	setString("RPC_URL", &c.Chain.RPCURL)
	setString("CONTRACTS_DEPLOYMENT_FILE", &c.Chain.DeploymentFile)
	setString("EDU_IDENTITY_ADDRESS", &c.Chain.Contracts.Identity)
	setString("EDU_CONSENT_ADDRESS", &c.Chain.Contracts.Consent)
	setString("EDU_TOKEN_ADDRESS", &c.Chain.Contracts.Token)

	if v, ok := os.LookupEnv("DB_DRIVER"); ok && v != "" {
		c.Storage.Driver = storage.DriverType(v)
	}
	setString("DB_DSN", &c.Storage.DSN)
	setString("DB_HOST", &c.Storage.Host)
	setString("DB_NAME", &c.Storage.DB)
	setString("DB_USER", &c.Storage.User)
	setString("DB_PASSWORD", &c.Storage.Password)
	if err := setInt("DB_PORT", &c.Storage.Port); err != nil {
		return err
	}

	if err := setInt("PORT", &c.Server.Port); err != nil {
		return err
	}
	setString("REDIS_ADDR", &c.Caching.RedisAddr)
	setString("LOG_LEVEL", &c.Logging.Internal.Level)
	return nil
}
