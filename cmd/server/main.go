package main

import "hrminsights/internal/app/server"

func main() {
	server.Run()
}
