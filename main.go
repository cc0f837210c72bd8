package main

import (
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/cmd"
)

func main() {
	cmd.Execute()
}
