// Command placematch links local place records to an external place index.
//
// Subcommands cover the batch matcher (match), curated definitions
// (resolve), the local SQLite store (places), the Elasticsearch mirror
// (index), the resolver snapshot (cache), and configuration (config).
package main
