package sstv

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/samoyed-sstv/src.SSTV_VERSION=X'"`
var SSTV_VERSION string

func buildSetting(bi *debug.BuildInfo, key string, defaultValue string) string {
	if bi == nil {
		return defaultValue
	}

	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// VersionString is what --version prints, without the trailing newline.
func VersionString() string {
	var buildInfo, _ = debug.ReadBuildInfo()

	var (
		revision        = buildSetting(buildInfo, "vcs.revision", "UNKNOWN")
		builtAt         = buildSetting(buildInfo, "vcs.time", "UNKNOWN")
		dirty, dirtyErr = strconv.ParseBool(buildSetting(buildInfo, "vcs.modified", "false"))
	)

	if dirty {
		revision += "-DIRTY"
	} else if dirtyErr != nil {
		revision += "-UNKNOWNDIRTY"
	}

	var version = SSTV_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	return fmt.Sprintf("samoyed-sstv - Version %s (revision %s, built at %s)", version, revision, builtAt)
}

func PrintVersion(verbose bool) {
	fmt.Println(VersionString())

	if verbose {
		var buildInfo, _ = debug.ReadBuildInfo()
		fmt.Printf("\nBuildInfo: %+v\n", buildInfo)
	}
}
