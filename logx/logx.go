package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultLogFile    = "./logs/vessel.log"
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 28
)

var (
	mu     sync.RWMutex
	output io.WriteCloser = &lumberjack.Logger{
		Filename: getLogFilename(),
		MaxSize:  getMaxSize(), // megabytes
		MaxAge:   getMaxAge(),  // days
	}

	logger = log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func getLogFilename() string {
	if logFile := os.Getenv("LOGFILE"); logFile != "" {
		return "./logs/" + logFile
	}
	return defaultLogFile
}

func getMaxSize() int {
	return envInt("LOGFILE_MAX_SIZE_MB", defaultMaxSizeMB)
}

func getMaxAge() int {
	return envInt("LOGFILE_MAX_AGE_DAYS", defaultMaxAgeDays)
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Configure points the logger at a new rotated file. Zero values keep the
// current environment-derived settings. Environment variables take precedence
// over the values passed here.
func Configure(filename string, maxSizeMB, maxAgeDays int) {
	if os.Getenv("LOGFILE") != "" || filename == "" {
		filename = getLogFilename()
	}
	if os.Getenv("LOGFILE_MAX_SIZE_MB") != "" || maxSizeMB <= 0 {
		maxSizeMB = getMaxSize()
	}
	if os.Getenv("LOGFILE_MAX_AGE_DAYS") != "" || maxAgeDays <= 0 {
		maxAgeDays = getMaxAge()
	}
	SetOutput(&lumberjack.Logger{
		Filename: filename,
		MaxSize:  maxSizeMB,
		MaxAge:   maxAgeDays,
	})
}

// SetOutput replaces the log destination, closing the previous one.
func SetOutput(w io.WriteCloser) {
	mu.Lock()
	defer mu.Unlock()
	if output != nil {
		_ = output.Close()
	}
	output = w
	logger = log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

// Close flushes and closes the current log destination.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if output == nil {
		return nil
	}
	return output.Close()
}

func printf(color, level, category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	mu.RLock()
	defer mu.RUnlock()
	logger.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	printf(ColorGreen, "INFO", category, content...)
}

func Error(category string, content ...interface{}) {
	printf(ColorRed, "ERROR", category, content...)
}

func Warn(category string, content ...interface{}) {
	printf(ColorYellow, "WARN", category, content...)
}

func Debug(category string, content ...interface{}) {
	printf(ColorBlue, "DEBUG", category, content...)
}
