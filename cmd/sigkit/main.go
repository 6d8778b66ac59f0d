package main

import "github.com/docseal/sigkit/cmd/sigkit/cmd"

func main() {
	cmd.Execute()
}
