// Package metrics owns the prometheus registry for curation and
// canonicalization runs and exports it to a node-exporter textfile.
package metrics
