package logging

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevels is the environment variable that configures initial log levels.
// Its value is a comma-separated list such as "info,graph=debug,timer=warn";
// an entry without a package name sets the default.
const EnvLevels = "PKTGRAPH_LOG"

// ErrNoLogger indicates the package has not created a logger.
var ErrNoLogger = errors.New("no logger for package")

// PkgLevel describes the log level of a package.
type PkgLevel struct {
	Package string `json:"package"`
	Level   string `json:"level"`
}

var (
	levelsMutex sync.Mutex
	levels      = map[string]zap.AtomicLevel{}
)

func parseEnvLevels(value string) (dflt zapcore.Level, pkgs map[string]zapcore.Level) {
	dflt, pkgs = zapcore.InfoLevel, map[string]zapcore.Level{}
	for _, entry := range strings.Split(value, ",") {
		pkg, lvl, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			pkg, lvl = "", pkg
		}
		var l zapcore.Level
		if l.UnmarshalText([]byte(lvl)) != nil {
			continue
		}
		if pkg == "" {
			dflt = l
		} else {
			pkgs[pkg] = l
		}
	}
	return
}

func atomicLevel(pkg string) zap.AtomicLevel {
	levelsMutex.Lock()
	defer levelsMutex.Unlock()
	if al, ok := levels[pkg]; ok {
		return al
	}

	dflt, pkgs := parseEnvLevels(os.Getenv(EnvLevels))
	l, ok := pkgs[pkg]
	if !ok {
		l = dflt
	}
	al := zap.NewAtomicLevelAt(l)
	levels[pkg] = al
	return al
}

// SetLevel changes the log level of a package.
// lvl is a zap level name such as "debug" or "warn".
func SetLevel(pkg, lvl string) error {
	var l zapcore.Level
	if e := l.UnmarshalText([]byte(lvl)); e != nil {
		return e
	}

	levelsMutex.Lock()
	defer levelsMutex.Unlock()
	al, ok := levels[pkg]
	if !ok {
		return fmt.Errorf("%w %s", ErrNoLogger, pkg)
	}
	al.SetLevel(l)
	return nil
}

// Levels returns the log level of every package that has a logger, sorted by package name.
func Levels() (list []PkgLevel) {
	levelsMutex.Lock()
	defer levelsMutex.Unlock()
	for pkg, al := range levels {
		list = append(list, PkgLevel{Package: pkg, Level: al.Level().String()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Package < list[j].Package })
	return list
}
