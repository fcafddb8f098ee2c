package main

import "github.com/dearher/bagstore/internal/app"

func main() {
	app.New().Run()
}
