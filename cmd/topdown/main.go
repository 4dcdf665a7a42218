// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Topdown is a tool for generating differentially-private synthetic
// microdata from geographically hierarchical contingency tables.
package main

import (
	"github.com/js-arias/command"
	"github.com/js-arias/topdown/cmd/topdown/comparecmd"
	"github.com/js-arias/topdown/cmd/topdown/resumecmd"
	"github.com/js-arias/topdown/cmd/topdown/run"
)

var app = &command.Command{
	Usage: "topdown <command> [<argument>...]",
	Short: "generate differentially-private synthetic microdata",
}

func init() {
	app.Add(run.Command)
	app.Add(resumecmd.Command)
	app.Add(comparecmd.Command)
}

func main() {
	app.Main()
}
