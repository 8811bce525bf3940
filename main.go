// Package main is the entry point for pymusic.
package main

import (
	"github.com/KoTeuKa404/pymusic/cmd"
	"github.com/KoTeuKa404/pymusic/config"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
