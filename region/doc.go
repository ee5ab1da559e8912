// Package region defines the narrow interface the freeset package consumes
// to interact with heap regions it does not own, plus the request/response
// types exchanged at the allocation boundary.
//
// Region objects, their state machine (empty/trash/humongous/regular), and
// physical memory commit/uncommit all live on the host side; this package
// only names the queries and mutations freeset needs.
package region
