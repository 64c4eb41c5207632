// Package economy holds the resource arithmetic of the garden: soil
// constants, planting costs, the harvest reward formula, and the 6 AM
// reset windows that meter water (daily) and sun (weekly).
//
// Every function that depends on the current time takes it as an explicit
// parameter. Day and week boundaries are computed in the location of that
// parameter.
package economy
