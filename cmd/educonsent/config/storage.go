package config

import (
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/WhitehatD/Student-Identity-Consent/storage"
)

type storageConf struct {
	Driver  storage.DriverType `yaml:"driver"`
	DataDir string             `yaml:"data_dir"`
	DSN     string             `yaml:"dsn"`

	storage.DSNConf `yaml:",inline"`
	Debug           bool `yaml:"debug"`
}

func (c *storageConf) validate() error {
	if !slices.Contains(storage.SupportedDrivers, c.Driver) {
		return errors.Errorf("unsupported driver '%s'", c.Driver)
	}
	if c.Driver == storage.DriverSQLite {
		if c.DSN != "" {
			return nil
		}
		if c.DataDir == "" {
			return errors.New("error in storage conf: data_dir must be specified")
		}
		if !fileutils.FileExists(c.DataDir) {
			return errors.Errorf("error in storage conf: data_dir '%s' does not exist", c.DataDir)
		}
		return nil
	}
	var err error
	if c.DSN == "" {
		c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
	}
	return err
}

var defaultStorageConf = storageConf{
	Driver:  storage.DriverSQLite,
	DataDir: ".",
	DSNConf: storage.DSNConf{
		User: "educonsent",
		Host: "localhost",
		DB:   "educonsent",
	},
	Debug: false,
}

// LoadStorage connects to the configured database and migrates it
func LoadStorage(c storageConf) (*storage.Storage, error) {
	s, err := storage.NewStorage(
		storage.Config{
			Driver:  c.Driver,
			DSN:     c.DSN,
			DataDir: c.DataDir,
			Debug:   c.Debug,
		},
	)
	if err != nil {
		return nil, err
	}
	log.WithField("driver", c.Driver).Info("Loaded storage backend")
	return s, nil
}
