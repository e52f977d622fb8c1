// Package report renders episode artifacts: a top-down trajectory PNG that is
// attached to the verdict, and an HTML run report built with go-echarts.
package report
