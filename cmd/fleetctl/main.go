package main

import "fleetcontrol/cmd/fleetctl/cmd"

func main() {
	cmd.Execute()
}
