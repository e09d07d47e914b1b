package cli

import (
	"fmt"
)

var greeting string

func PrepareGreeting() {
	greeting = fmt.Sprintf(
		`Welcome to s3fsd
================

This server speaks a subset of the S3 HTTP API over a plain filesystem
backend rooted at %s.

- PUT /<bucket> to create a bucket
- PUT /<bucket>/<key> to upload an object
- GET /<bucket>/<key> to download it
- %s to gather operational metrics

Version = %s
GitCommit = %s
BuildDate = %s
`, Flags.BaseDir, Flags.MetricsPath, VersionName, GitCommit, BuildDate)
}
