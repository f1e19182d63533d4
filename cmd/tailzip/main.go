package main

import (
	"github.com/nguyengg/tailzip/internal/cmd"
)

func main() {
	exit(cmd.Run())
}
