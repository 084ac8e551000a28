package main

import "github.com/oshokin/vibration-alarm/cmd/alarm-ctl/cmd"

func main() {
	cmd.Execute()
}
