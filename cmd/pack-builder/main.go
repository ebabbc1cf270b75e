package main

import "github.com/oshokin/pack-publisher/cmd/pack-builder/cmd"

func main() {
	cmd.Execute()
}
