// File: cmd/version.go
package cmd

// Version is the application version, set at build time:
// go build -ldflags "-X github.com/xkilldash9x/scalpel-webdriver/cmd.Version=1.0.0" ./cmd/scalpel-webdriver
var Version = "0.1.0-dev"
