package main

import "pair-date-backend/cmd"

func main() {
	cmd.Run()
}
