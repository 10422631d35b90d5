package util

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug uint64

var logger = logrus.New()

func init() {
	if lvl, err := strconv.ParseUint(os.Getenv("SECTORFS_DEBUG"), 10, 64); err == nil {
		debug = lvl
	}
	logger.SetLevel(logrus.DebugLevel)
}

// DPrintf logs a debug message if level is at or below the configured
// verbosity (SECTORFS_DEBUG, default 0).
func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= debug {
		logger.Debugf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}
