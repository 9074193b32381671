package version

// Version is the current version of hwsnap.
// This MUST be incremented for each build that includes changes.
// Use semantic versioning: MAJOR.MINOR.PATCH
// Release builds may override it with -ldflags "-X".
var Version = "0.4.0"
