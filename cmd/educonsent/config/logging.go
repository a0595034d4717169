package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/WhitehatD/Student-Identity-Consent/internal/logger"
)

// loggingConf holds all logging-related configuration under the `logging` key.
//
// YAML example:
//
//	logging:
//	  access:
//	    dir: /var/log/educonsent
//	    stderr: false
//	  internal:
//	    dir: /var/log/educonsent
//	    stderr: true
//	    level: INFO
//	    json: false
//	    smart:
//	      enabled: true
type loggingConf struct {
	Access   LoggerConf         `yaml:"access"`
	Internal internalLoggerConf `yaml:"internal"`
}

// internalLoggerConf configures application-internal logging.
// When Smart logging is enabled, errors are duplicated to a dedicated directory.
type internalLoggerConf struct {
	LoggerConf `yaml:",inline"`
	Level      string          `yaml:"level"`
	JSON       bool            `yaml:"json"`
	Smart      smartLoggerConf `yaml:"smart"`
}

// LoggerConf holds configuration related to logging
type LoggerConf struct {
	Dir    string `yaml:"dir"`
	StdErr bool   `yaml:"stderr"`
}

// smartLoggerConf falls back to the internal logger's dir if Dir is empty
type smartLoggerConf struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func checkLoggingDirExists(dir string) error {
	if dir != "" && !fileutils.FileExists(dir) {
		return errors.Errorf("logging directory '%s' does not exist", dir)
	}
	return nil
}

func (log *loggingConf) validate() error {
	if err := checkLoggingDirExists(log.Access.Dir); err != nil {
		return err
	}
	if err := checkLoggingDirExists(log.Internal.Dir); err != nil {
		return err
	}
	if log.Internal.Smart.Enabled {
		if log.Internal.Smart.Dir == "" {
			log.Internal.Smart.Dir = log.Internal.Dir
		}
		if log.Internal.Smart.Dir == "" {
			return errors.New("smart logging needs a directory")
		}
		if err := checkLoggingDirExists(log.Internal.Smart.Dir); err != nil {
			return err
		}
	}
	return nil
}

// InternalLogger returns the logger.InternalConf of the application log
func (log loggingConf) InternalLogger() logger.InternalConf {
	c := logger.InternalConf{
		Conf: logger.Conf{
			Dir:    log.Internal.Dir,
			StdErr: log.Internal.StdErr,
		},
		Level: log.Internal.Level,
		JSON:  log.Internal.JSON,
	}
	if log.Internal.Smart.Enabled {
		c.SmartDir = log.Internal.Smart.Dir
	}
	return c
}

// AccessLogger returns the logger.Conf of the access log
func (log loggingConf) AccessLogger() logger.Conf {
	return logger.Conf{
		Dir:    log.Access.Dir,
		StdErr: log.Access.StdErr,
	}
}

var defaultLoggingConf = loggingConf{
	Internal: internalLoggerConf{
		Level: "INFO",
	},
}
