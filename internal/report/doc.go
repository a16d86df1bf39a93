// Package report renders sweep output: CSV rows, markdown comparison
// tables, rate-distortion plots (PNG via gonum/plot, HTML via go-echarts)
// and importance-map overlays.
package report
