package config

import (
	"os"
	"reflect"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	educonsent "github.com/WhitehatD/Student-Identity-Consent"
)

// Config holds the configuration of educonsent
type Config struct {
	Server  educonsent.ServerConf `yaml:"server"`
	Chain   chainConf             `yaml:"chain"`
	Storage storageConf           `yaml:"storage"`
	Caching cachingConf           `yaml:"caching"`
	Demo    demoConf              `yaml:"demo"`
	Logging loggingConf           `yaml:"logging"`
}

type configValidator interface {
	validate() error
}

// demoConf controls the creation of demo records
type demoConf struct {
	// SeedCourses creates the course catalogue on start up if it is empty
	SeedCourses bool `yaml:"seed_courses"`
	// SeedOnRegister creates random grades and a certificate for every newly
	// registered wallet
	SeedOnRegister bool `yaml:"seed_on_register"`
}

var defaultDemoConf = demoConf{
	SeedCourses:    true,
	SeedOnRegister: true,
}

func defaultConfig() *Config {
	return &Config{
		Server:  defaultServerConf(),
		Chain:   defaultChainConf,
		Storage: defaultStorageConf,
		Caching: defaultCachingConf,
		Demo:    defaultDemoConf,
		Logging: defaultLoggingConf,
	}
}

var conf *Config

// Get returns the loaded Config
func Get() *Config {
	return conf
}

var possibleConfigLocations = []string{
	"config.yaml",
	"config/config.yaml",
	"/config/config.yaml",
	"/etc/educonsent/config.yaml",
}

// EnvFile is the dotenv file loaded before the configuration
var EnvFile = ".env"

// Load loads the configuration from filename or, if it is empty, from the
// first existing default location. Without any file only defaults and
// environment variables are used.
func Load(filename string) error {
	if fileutils.FileExists(EnvFile) {
		if err := godotenv.Load(EnvFile); err != nil {
			return errors.Wrapf(err, "could not load env file '%s'", EnvFile)
		}
	}
	var data []byte
	switch {
	case filename != "":
		var err error
		data, err = os.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "could not read config file '%s'", filename)
		}
	default:
		for _, l := range possibleConfigLocations {
			if !fileutils.FileExists(l) {
				continue
			}
			var err error
			data, err = os.ReadFile(l)
			if err != nil {
				return errors.Wrapf(err, "could not read config file '%s'", l)
			}
			filename = l
			break
		}
	}
	c, err := load(data)
	if err != nil {
		return err
	}
	if filename != "" {
		log.WithField("file", filename).Debug("Read config file")
	}
	conf = c
	return nil
}

func load(data []byte) (*Config, error) {
	c := defaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(err, "could not parse config")
		}
	}
	if err := applyEnv(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if err := validateServerConf(&c.Server); err != nil {
		return errors.Wrap(err, "error in server conf")
	}
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		if !fieldVal.CanAddr() {
			continue
		}
		if validator, ok := fieldVal.Addr().Interface().(configValidator); ok {
			if err := validator.validate(); err != nil {
				return errors.Errorf("validation failed for field '%s': %s", t.Field(i).Name, err.Error())
			}
		}
	}
	return nil
}
