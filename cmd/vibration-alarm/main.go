package main

import "github.com/oshokin/vibration-alarm/cmd/vibration-alarm/cmd"

func main() {
	cmd.Execute()
}
