package main

import "marketplace-booking/cmd"

func main() {
	cmd.Execute()
}
