package main

import "github.com/CraigKelly/hmc2d/cmd"

func main() {
	cmd.Execute()
}
