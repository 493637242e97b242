// Package sheet manages the lifecycle of one entity sheet: the host window,
// one bridging store and one mounted view.
//
// The host drives a Controller through Render and Close:
//
//	Unmounted --Render--> Mounting --prepare ok--> Mounted
//	                          |
//	                          +----prepare failed--> Errored
//	Mounted   --Render--> Mounted   (forced set of a fresh snapshot)
//	any       --Close---> Unmounted
//
// A Render that arrives while the first one is still mounting does not build
// a second store or view; it is folded into a single forced refresh once
// mounting completes. Errored is terminal until Close.
//
// The controller holds the host window through the HostWindow interface
// rather than extending it, and hands the mounted view exactly one
// dependency: the typed *bridge.Store.
package sheet
