// Package version reports the build of the running binary.
//
// Version, Commit and BuildTime are set with -ldflags:
//
//	go build -ldflags "-X github.com/tienminhktvn/dataops-project/version.Version=1.4.0" ./cmd/dataops
//
// Missing values fall back to the VCS stamp in the binary's build info.
package version
