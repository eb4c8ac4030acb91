// Package timeline turns an ordered list of periods into an hour axis.
//
// This package contains the functional core logic shared by the placement,
// reflow and allocation engines. All functions are pure (no I/O, no side
// effects).
//
// # Functions
//
//   - PeriodBoundaries: cumulative end hours with a leading zero entry
//   - PeriodWindow / MonthWindow: [start, end) hour windows
//   - MonthPeriods: the periods a month covers, in horizon order
//
// A month that references an unknown period, or none at all, yields a
// zero-width window and ok=false; callers log it and carry on.
package timeline
