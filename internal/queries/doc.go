// Package queries ships the canned reporting queries that back the
// network dashboard. Each query runs against the destination tables the
// importer maintains and returns a small tabular result suitable for
// printing or feeding a panel.
package queries
