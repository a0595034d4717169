package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// File names used when logging to a directory
const (
	InternalLogFile = "educonsent.log"
	AccessLogFile   = "access.log"
	ErrorLogFile    = "errors.log"
)

// Conf configures where a log is written to
type Conf struct {
	Dir    string
	StdErr bool
}

// InternalConf configures the application log
type InternalConf struct {
	Conf
	Level string
	JSON  bool
	// SmartDir, if set, receives a copy of all error level entries
	SmartDir string
}

// Init configures the standard logrus logger
func Init(conf InternalConf) error {
	level := log.InfoLevel
	if conf.Level != "" {
		var err error
		level, err = log.ParseLevel(strings.ToLower(conf.Level))
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
	}
	log.SetLevel(level)
	log.SetFormatter(formatter(conf.JSON))

	w, err := output(conf.Conf, InternalLogFile)
	if err != nil {
		return err
	}
	log.SetOutput(w)

	if conf.SmartDir != "" {
		f, err := openLogFile(conf.SmartDir, ErrorLogFile)
		if err != nil {
			return err
		}
		log.AddHook(newErrorHook(f, formatter(conf.JSON)))
	}
	return nil
}

// AccessWriter returns the writer the http access log is written to
func AccessWriter(conf Conf) (io.Writer, error) {
	return output(conf, AccessLogFile)
}

func formatter(json bool) log.Formatter {
	if json {
		return &log.JSONFormatter{}
	}
	return &log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	}
}

func output(conf Conf, file string) (io.Writer, error) {
	if conf.Dir == "" {
		return os.Stderr, nil
	}
	f, err := openLogFile(conf.Dir, file)
	if err != nil {
		return nil, err
	}
	if conf.StdErr {
		return io.MultiWriter(os.Stderr, f), nil
	}
	return f, nil
}

func openLogFile(dir, name string) (*os.File, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o640)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open log file '%s'", path)
	}
	return f, nil
}

type errorHook struct {
	w         io.Writer
	formatter log.Formatter
}

func newErrorHook(w io.Writer, f log.Formatter) *errorHook {
	return &errorHook{
		w:         w,
		formatter: f,
	}
}

// Levels implements log.Hook
func (h *errorHook) Levels() []log.Level {
	return []log.Level{
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
	}
}

// Fire implements log.Hook
func (h *errorHook) Fire(entry *log.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}
