package main

import "fleetops/nodewarden/cmd"

func main() {
	cmd.Execute()
}
