// Package version returns pktgraph version information.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Version records pktgraph version information.
type Version struct {
	Version string    `json:"version"`
	Commit  string    `json:"commit"`
	Date    time.Time `json:"date"`
	Dirty   bool      `json:"dirty"`
}

func (v Version) String() string {
	return v.Version
}

// V contains pktgraph version information.
var V = Version{
	Version: "development",
	Commit:  "unknown",
	Date:    time.Now(),
	Dirty:   true,
}

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	V = fromBuildSettings(bi.Settings)
}

func fromBuildSettings(settings []debug.BuildSetting) Version {
	bs := map[string]string{}
	for _, kv := range settings {
		bs[kv.Key] = kv.Value
	}
	dt, e := time.Parse(time.RFC3339, bs["vcs.time"])
	if bs["vcs"] != "git" || len(bs["vcs.revision"]) != 40 || e != nil {
		return V
	}

	v := Version{
		Commit: bs["vcs.revision"],
		Date:   dt,
		Dirty:  bs["vcs.modified"] == "true",
	}
	suffix := ""
	if v.Dirty {
		suffix = "-dirty"
	}
	v.Version = fmt.Sprintf("v0.0.0-%s-%s%s", v.Date.UTC().Format("20060102150405"), v.Commit[:12], suffix)
	return v
}
