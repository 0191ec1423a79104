// cmd/bcprimers/main.go
package main

import (
	"bcprimers/internal/app"
	"bcprimers/internal/appshell"
)

func main() { appshell.Main(app.RunContext) }
