package main

import "github.com/Mihika-Tech/LiveCollab/cmd"

func main() {
	cmd.Execute()
}
