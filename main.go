package main

import (
	"github.com/da-bao-jian/aa-bundler/cmd"
)

func main() {
	cmd.Execute()
}
