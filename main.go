package main

import "zotcurate/cmd"

func main() {
	cmd.Execute()
}
