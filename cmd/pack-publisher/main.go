package main

import "github.com/oshokin/pack-publisher/cmd/pack-publisher/cmd"

func main() {
	cmd.Execute()
}
