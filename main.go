package main

import "dappsuite/cmd"

func main() {
	cmd.Execute()
}
