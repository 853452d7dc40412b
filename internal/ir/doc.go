// Package ir provides the value and record types shared by every liveresults
// package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed union; every implementation is comparable so section
//     keys can index maps directly
//   - Null is never a section key
//   - Records carry a logical seq (last write), never wall-clock timestamps
//   - Stored attributes use the tagged encoding in codec.go
package ir
