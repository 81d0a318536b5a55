package main

import (
	"log"
	"os"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	if err := NewCLI().Run(os.Args); err != nil {
		log.Fatal("application exited. check logs for more details. ", err)
	}
}
