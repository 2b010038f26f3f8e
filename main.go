package main

import "github.com/qrave1/RehearsalHub/cmd"

func main() {
	cmd.Execute()
}
