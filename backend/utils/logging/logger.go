package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger shared by every package of a service.
var Logger = logrus.New()
var once sync.Once

// CustomFormatter writes one line per entry in the
// "Date, Time, Event Source, Event Type, Event ID, Message" layout.
type CustomFormatter struct {
	SystemName string
	Location   *time.Location
}

// Format generates the output bytes for a log entry.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	location := f.Location
	if location == nil {
		location = time.UTC
	}
	localTime := entry.Time.In(location)

	b.WriteString(fmt.Sprintf("Date: %s, Time: %s, ", localTime.Format("2006-01-02"), localTime.Format("15:04:05")))
	b.WriteString(fmt.Sprintf("Event Source: %s, ", f.SystemName))
	b.WriteString(fmt.Sprintf("Event Type: %s, ", strings.ToUpper(entry.Level.String())))
	b.WriteString(fmt.Sprintf("Event ID: %s, ", uuid.New().String()))
	b.WriteString(fmt.Sprintf("Message: %s", entry.Message))

	if entry.HasCaller() {
		b.WriteString(fmt.Sprintf(", Location: %s:%d in %s", filepath.Base(entry.Caller.File), entry.Caller.Line, entry.Caller.Function))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Options controls where and how much a service logs.
type Options struct {
	SystemName string
	FilePath   string
	Level      string
	// Timezone is an IANA name such as "Europe/Belgrade". Empty means UTC.
	Timezone string
}

// loadLocation resolves name, falling back to UTC when it is empty or unknown.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// InitLogger configures Logger once per process. Output always goes to
// stdout; when FilePath is set it is also written to a rotating file.
func InitLogger(opts Options) {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if opts.FilePath != "" {
			if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0700); err != nil {
				logrus.Fatalf("Event ID: LOG_DIR_CREATE_FAILED, Description: Failed to create log directory: %v", err)
			}
			logFile := &lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
			out = io.MultiWriter(os.Stdout, logFile)
		}

		location, locErr := loadLocation(opts.Timezone)

		Logger.SetOutput(out)
		Logger.SetFormatter(&CustomFormatter{SystemName: opts.SystemName, Location: location})

		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)
		Logger.SetReportCaller(true)

		if locErr != nil {
			Logger.Warnf("Event ID: LOG_TIMEZONE_INVALID, Description: Unknown timezone %q, logging in UTC: %v", opts.Timezone, locErr)
		}
		Logger.Infof("Event ID: LOGGER_INITIALIZED, Description: Logger initialized for %s (level %s, file %q)", opts.SystemName, level, opts.FilePath)
	})
}
