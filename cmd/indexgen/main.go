// Command indexgen precomputes artifacts from a timetable feed: the
// date to service pattern index, its consistency report against the
// calendar rules, and the printed grids of every stop.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
