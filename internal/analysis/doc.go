// Package analysis decides which accident fields are worth charting and
// turns them into frequency tables.
//
// The Classifier picks categorical text columns. Aggregate counts a single
// field or cross-tabulates a grouping field against a classification field,
// optionally deriving weekday, weekend, month or time-of-day buckets from a
// date/time column first. Unparseable values never abort an aggregation:
// times fall into the Unknown bucket and undated rows are left out.
package analysis
