package main

import "github.com/DoyleJ11/auction-room-backend/internal/cli"

func main() {
	cli.Execute()
}
