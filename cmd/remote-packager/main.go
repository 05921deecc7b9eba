package main

import "github.com/oshokin/remote-packager/cmd/remote-packager/cmd"

func main() {
	cmd.Execute()
}
