package main

import "github.com/KaramelBytes/healthgap-cli/cmd"

func main() {
	cmd.Execute()
}
