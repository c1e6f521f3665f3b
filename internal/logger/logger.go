package logger

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Level is the minimum severity that gets written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	Debug *log.Logger
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel rebuilds the package loggers so that anything below lvl is discarded.
func SetLevel(lvl Level) {
	Debug = newLogger(os.Stdout, color.CyanString("[DEBUG] "), lvl > LevelDebug)
	Info = newLogger(os.Stdout, color.GreenString("[INFO] "), lvl > LevelInfo)
	Warn = newLogger(os.Stdout, color.YellowString("[WARN] "), lvl > LevelWarn)
	Error = newLogger(os.Stderr, color.RedString("[ERROR] "), false)
}

// ParseLevel maps LOG_LEVEL values to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func newLogger(out io.Writer, prefix string, discard bool) *log.Logger {
	if discard {
		out = io.Discard
	}
	return log.New(out, prefix, log.Ldate|log.Ltime|log.Lshortfile)
}
