package main

import "github.com/strongdm/appsentry/cmd/appsentry-demo/cmd"

func main() {
	cmd.Execute()
}
