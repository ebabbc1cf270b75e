package main

import "github.com/oshokin/pack-publisher/cmd/pack-resolver/cmd"

func main() {
	cmd.Execute()
}
