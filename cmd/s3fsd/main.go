package main

import (
	"github.com/wushilin/rust-s3-server/cmd/s3fsd/cli"
)

func main() {
	cli.ParseFlags()

	if cli.Flags.ShowVersion {
		cli.ShowVersion()
		return
	}

	cli.Serve()
}
