// Package main provides the pgmantle CLI.
//
// The CLI drives the compile-time half of the framework:
//   - schema: extract annotated declarations and emit the extension SQL
//   - generate: emit the wrapper source binding SQL functions to Go
//   - bindgen: generate typed bindings from the server headers
//   - install: apply a generated schema script to a database
//   - watch: re-run schema generation when sources change
//   - config: manage registered server installations
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
)

var revision = "dev"

func main() {
	setupLog(os.Getenv("PGMANTLE_DEBUG") != "")
	Execute()
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = append(logOpts, lgr.Debug, lgr.CallerFile, lgr.CallerFunc)
	}
	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgHiYellow).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgHiWhite).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	lgr.SetupStdLogger(logOpts...)
}
