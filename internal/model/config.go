package model

import "time"

// Config holds every knob of a parse/check run.
type Config struct {
	InputFile     string
	OutputFile    string
	OutputFormat  string // json, csv or txt
	DefaultScheme string // scheme given to bare ip:port lines
	Target        string // URL connected to through each proxy
	Timeout       time.Duration
	Concurrency   int    // ceiling on in-flight checks
	Network       string // tcp, tcp4 or tcp6
	GeoIPDatabase string // optional path to a GeoLite2/GeoIP2 country mmdb
	Verbose       bool
	Progress      bool
}

const (
	DefaultTarget      = "https://httpbin.org/get"
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 1000
)
