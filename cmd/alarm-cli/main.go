package main

import "github.com/oshokin/alarm-scheduler/cmd/alarm-cli/cmd"

func main() {
	cmd.Execute()
}
