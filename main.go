package main

import "github.com/claippy/claippy/cmd"

func main() {
	cmd.Execute()
}
